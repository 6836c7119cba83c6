package model

import (
	"errors"
	"testing"
	"time"
)

// TestNewQuery tests query normalization.
func TestNewQuery(t *testing.T) {
	t.Parallel()

	t.Run("drops blank keywords and trims", func(t *testing.T) {
		t.Parallel()

		q := NewQuery([]string{" go ", "", "  ", "cli"}, "code")
		if q.Terms() != "go cli" {
			t.Errorf("got %q, expected %q", q.Terms(), "go cli")
		}
		if q.Type != "code" {
			t.Errorf("got %q, expected code", q.Type)
		}
	})

	t.Run("defaults the search type", func(t *testing.T) {
		t.Parallel()

		q := NewQuery([]string{"go"}, "")
		if q.Type != DefaultSearchType {
			t.Errorf("got %q, expected %q", q.Type, DefaultSearchType)
		}
	})

	t.Run("key is case-insensitive and type-scoped", func(t *testing.T) {
		t.Parallel()

		a := NewQuery([]string{"Go", "CLI"}, "repositories")
		b := NewQuery([]string{"go", "cli"}, "repositories")
		c := NewQuery([]string{"go", "cli"}, "code")
		if a.Key() != b.Key() {
			t.Errorf("expected equal keys, got %q and %q", a.Key(), b.Key())
		}
		if a.Key() == c.Key() {
			t.Errorf("expected different keys for different types, got %q", a.Key())
		}
	})
}

// TestNewSearchReport tests the SearchReport constructor and helpers.
func TestNewSearchReport(t *testing.T) {
	t.Parallel()

	q := NewQuery([]string{"scraper"}, "")

	t.Run("assigns an id and timestamp", func(t *testing.T) {
		t.Parallel()

		r := NewSearchReport(q)
		if r.ID == "" {
			t.Error("expected ID to be set")
		}
		if time.Since(r.StartedAt) > time.Second {
			t.Error("StartedAt is too old")
		}
		if r.Results == nil {
			t.Error("expected Results to be initialized")
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		t.Parallel()

		if NewSearchReport(q).ID == NewSearchReport(q).ID {
			t.Error("expected distinct IDs")
		}
	})

	t.Run("SetResults updates fingerprint", func(t *testing.T) {
		t.Parallel()

		r := NewSearchReport(q)
		r.SetResults([]SearchResult{NewSearchResult("https://github.com/a/b", "a")})
		if r.Fingerprint == "" {
			t.Error("expected fingerprint to be set")
		}
		r.SetResults(nil)
		if r.Results == nil || len(r.Results) != 0 {
			t.Errorf("expected empty non-nil results, got %v", r.Results)
		}
		if r.Fingerprint != "" {
			t.Errorf("expected empty fingerprint, got %q", r.Fingerprint)
		}
	})

	t.Run("Fail records the error", func(t *testing.T) {
		t.Parallel()

		r := NewSearchReport(q)
		if r.Failed() {
			t.Error("expected fresh report not to be failed")
		}
		errBoom := errors.New("boom")
		r.Fail(errBoom)
		if !r.Failed() {
			t.Error("expected report to be failed")
		}
		if !errors.Is(r.Error, errBoom) {
			t.Errorf("got %v, expected %v", r.Error, errBoom)
		}
		if r.ErrorMessage != "boom" {
			t.Errorf("got %q, expected boom", r.ErrorMessage)
		}
	})

	t.Run("Duration is zero until finished", func(t *testing.T) {
		t.Parallel()

		r := NewSearchReport(q)
		if r.Duration() != 0 {
			t.Errorf("expected 0, got %v", r.Duration())
		}
		r.Finish()
		if r.Duration() < 0 {
			t.Errorf("expected non-negative duration, got %v", r.Duration())
		}
	})
}
