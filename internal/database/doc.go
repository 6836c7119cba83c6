// Package database stores search history in SQLite.
//
// SearchDB keeps one row per search with the full report as JSON, plus one
// row per extracted repository so history can be compared without decoding
// every report. It uses modernc.org/sqlite, a CGO-free driver, with WAL
// enabled by default.
package database
