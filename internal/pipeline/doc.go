// Package pipeline runs the steps of one search in sequence and runs
// independent searches in batches.
//
// A search is three steps: select a proxy, fetch the result page and
// extract the results. Each step reads and writes a shared Run. The
// pipeline stops at the first failing step, records the error in the
// report and skips the remaining steps.
//
// BatchProcessor runs several searches concurrently with an errgroup
// limit. Each search stays sequential.
package pipeline
