// Package model defines the data structures shared by reposcout packages.
//
// This package contains the following main types:
//   - SearchResult: One repository extracted from a result page
//   - Query: The keywords and result category of a search
//   - SearchReport: The outcome of one search and how it was performed
//   - Comparison: What changed between two searches of the same query
//
// The extractor, the search pipeline, the report writers and the history
// database all use these types, so they live in their own package.
//
// SearchResult marshals to the wire format of the library:
// {"url": ..., "extra": {"owner": ..., "language_details": {...}}}.
package model
