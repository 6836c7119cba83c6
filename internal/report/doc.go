// Package report writes search reports.
//
// Writers:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: the result list as a JSON array of {url, extra}
//   - FullJSONWriter: the whole report wrapped with version metadata
//   - MarkdownWriter: tables and a language pie chart for sharing
//
// All writers implement Writer and can be combined with MultiWriter.
package report
