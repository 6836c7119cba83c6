// Package main provides the entry point for the reposcout CLI.
//
// reposcout searches GitHub through a randomly chosen working proxy and
// extracts the repository links and languages from the result page.
//
// Usage:
//
//	reposcout search web scraper
//	reposcout search -x 10.0.0.1:8080 -P proxies.txt --json golang cli
//	reposcout history web scraper --compare
//	reposcout serve --listen 127.0.0.1:8080
//
// See --help for all available options.
package main

func main() {
	Execute()
}
