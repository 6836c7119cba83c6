package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSearchType is the result category searched when none is given.
const DefaultSearchType = "repositories"

// Query identifies one search: the keywords and the result category.
type Query struct {
	// Keywords are the search terms in the order given by the caller.
	Keywords []string `json:"keywords"`

	// Type is the result category, e.g. "repositories" or "code".
	Type string `json:"type"`
}

// NewQuery creates a query, defaulting the type to DefaultSearchType.
// Blank keywords are dropped.
func NewQuery(keywords []string, searchType string) Query {
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	if searchType == "" {
		searchType = DefaultSearchType
	}
	return Query{Keywords: kws, Type: searchType}
}

// Terms returns the keywords joined by a single space.
func (q Query) Terms() string {
	return strings.Join(q.Keywords, " ")
}

// Key returns a stable identifier for the query, used to group history.
// Keywords are lower-cased; order is preserved because it changes ranking.
func (q Query) Key() string {
	return q.Type + ":" + strings.ToLower(q.Terms())
}

// String implements fmt.Stringer.
func (q Query) String() string {
	return q.Terms() + " (" + q.Type + ")"
}

// SearchReport is the outcome of one search, including how it was performed.
type SearchReport struct {
	// ID uniquely identifies the report in the history database.
	ID string `json:"id"`

	// Query is what was searched for.
	Query Query `json:"query"`

	// SearchURL is the page that was fetched.
	SearchURL string `json:"search_url,omitempty"`

	// Proxy is the proxy URL used for the fetch with credentials redacted.
	// Empty means the fetch went out directly.
	Proxy string `json:"proxy,omitempty"`

	// ProbeAttempts is the number of proxy probes issued before the fetch.
	ProbeAttempts int `json:"probe_attempts"`

	// StartedAt is when the search began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step completed.
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// StatusCode is the HTTP status of the search page, 0 if no response.
	StatusCode int `json:"status_code,omitempty"`

	// Results are the extracted entries in document order.
	Results []SearchResult `json:"results"`

	// Fingerprint is a digest of the result set. See Fingerprint.
	Fingerprint string `json:"fingerprint,omitempty"`

	// PerformedSteps lists the pipeline steps that ran to completion.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the failure that stopped the search, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewSearchReport creates an empty report for q.
func NewSearchReport(q Query) *SearchReport {
	return &SearchReport{
		ID:        uuid.NewString(),
		Query:     q,
		StartedAt: time.Now(),
		Results:   make([]SearchResult, 0),
	}
}

// SetResults replaces the results and refreshes the fingerprint.
func (r *SearchReport) SetResults(results []SearchResult) {
	if results == nil {
		results = make([]SearchResult, 0)
	}
	r.Results = results
	r.Fingerprint = Fingerprint(results)
}

// Fail records err as the reason the search stopped.
func (r *SearchReport) Fail(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Failed reports whether the search stopped on an error.
func (r *SearchReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// Finish stamps the completion time.
func (r *SearchReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns how long the search took, or 0 if it has not finished.
func (r *SearchReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
