// Package search fetches a code-hosting search page through a rotating
// proxy and extracts its results.
//
// One search is sequential: pick a proxy (or go direct), fetch the page
// once, extract the results. Failures never reach the caller as errors:
// an unusable proxy pool falls back to a direct connection, and a failed
// fetch yields an empty result list. The report returned by Search says
// what went wrong.
package search
