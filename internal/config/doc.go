// Package config holds reposcout's options and loads them from the
// .reposcout YAML file, .env files and REPOSCOUT_* environment variables.
package config
