package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/reposcout/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *SearchDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newReport builds a report for q started offset after base with one result
// per owner.
func newReport(q model.Query, offset time.Duration, owners ...string) *model.SearchReport {
	r := model.NewSearchReport(q)
	r.StartedAt = base.Add(offset)
	r.FinishedAt = r.StartedAt.Add(time.Second)
	r.StatusCode = 200
	results := make([]model.SearchResult, 0, len(owners))
	for _, owner := range owners {
		res := model.NewSearchResult("https://github.com/"+owner+"/repo", owner)
		res.SetLanguage("Go")
		results = append(results, res)
	}
	r.SetResults(results)
	return r
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("got path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		q := model.NewQuery([]string{"go"}, "")
		if err := db1.SaveReport(context.Background(), newReport(q, 0, "alice")); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		history, err := db2.History(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("expected data to persist, got %d entries", len(history))
		}
	})
}

// TestSaveAndGetReport tests report round trips through the database.
func TestSaveAndGetReport(t *testing.T) {
	t.Parallel()

	t.Run("round trips results and metadata", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		r := newReport(model.NewQuery([]string{"web", "scraper"}, ""), 0, "alice", "bob")
		r.Proxy = "http://10.0.0.1:3128"
		r.ProbeAttempts = 2
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := db.GetReport(ctx, r.ID)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.ID != r.ID || got.Query.Terms() != "web scraper" {
			t.Errorf("unexpected report %+v", got)
		}
		if len(got.Results) != 2 || got.Results[1].Extra.Owner != "bob" || got.Results[1].Language() != "Go" {
			t.Errorf("unexpected results %+v", got.Results)
		}
		if got.Fingerprint != r.Fingerprint || got.Proxy != r.Proxy || got.ProbeAttempts != 2 {
			t.Errorf("metadata lost: %+v", got)
		}
		if !got.StartedAt.Equal(r.StartedAt) {
			t.Errorf("got %v, expected %v", got.StartedAt, r.StartedAt)
		}
	})

	t.Run("failed report keeps its error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		r := model.NewSearchReport(model.NewQuery([]string{"x"}, ""))
		r.Fail(errors.New("fetch failed: status 429"))
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := db.GetReport(ctx, r.ID)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if !got.Failed() || got.Error == nil || got.Error.Error() != "fetch failed: status 429" {
			t.Errorf("expected error to round trip, got %v", got.Error)
		}
		if got.Results == nil {
			t.Error("expected non-nil results")
		}
	})

	t.Run("saving the same ID replaces the report", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		q := model.NewQuery([]string{"x"}, "")

		r := newReport(q, 0, "alice", "bob")
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		r.SetResults(r.Results[:1])
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("failed to resave: %v", err)
		}

		history, err := db.History(ctx, q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 1 || history[0].ResultCount != 1 {
			t.Errorf("expected one replaced entry, got %+v", history)
		}
		repos, err := db.SeenRepositories(ctx, q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(repos) != 1 {
			t.Errorf("expected stale results to be replaced, got %+v", repos)
		}
	})

	t.Run("unknown ID", func(t *testing.T) {
		t.Parallel()

		if _, err := setupTestDB(t).GetReport(context.Background(), "missing"); !errors.Is(err, ErrReportNotFound) {
			t.Errorf("expected ErrReportNotFound, got %v", err)
		}
	})

	t.Run("nil report", func(t *testing.T) {
		t.Parallel()

		if err := setupTestDB(t).SaveReport(context.Background(), nil); !errors.Is(err, ErrNilReport) {
			t.Errorf("expected ErrNilReport, got %v", err)
		}
	})
}

// TestHistory tests history queries.
func TestHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	goQuery := model.NewQuery([]string{"Go", "CLI"}, "")
	rustQuery := model.NewQuery([]string{"rust"}, "")

	failed := newReport(goQuery, 2*time.Hour)
	failed.Fail(errors.New("boom"))

	for _, r := range []*model.SearchReport{
		newReport(goQuery, 0, "alice"),
		newReport(rustQuery, 30*time.Minute, "carol"),
		newReport(goQuery, time.Hour, "alice", "bob"),
		failed,
	} {
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
	}

	t.Run("ListQueries orders by most recent search", func(t *testing.T) {
		t.Parallel()

		queries, err := db.ListQueries(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(queries) != 2 {
			t.Fatalf("expected 2 queries, got %+v", queries)
		}
		if queries[0].Key != goQuery.Key() || queries[0].Searches != 3 {
			t.Errorf("unexpected first query %+v", queries[0])
		}
		if queries[0].Query.Terms() != "Go CLI" {
			t.Errorf("got %q, expected original casing", queries[0].Query.Terms())
		}
		if !queries[0].LastSearched.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("got %v", queries[0].LastSearched)
		}
		if queries[1].Key != rustQuery.Key() || queries[1].Searches != 1 {
			t.Errorf("unexpected second query %+v", queries[1])
		}
	})

	t.Run("History is newest first and case-insensitive", func(t *testing.T) {
		t.Parallel()

		history, err := db.History(ctx, model.NewQuery([]string{"go", "cli"}, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(history))
		}
		if !history[0].Failed() || history[1].ResultCount != 2 || history[2].ResultCount != 1 {
			t.Errorf("unexpected order %+v", history)
		}
	})

	t.Run("LatestReports can skip failures", func(t *testing.T) {
		t.Parallel()

		all, err := db.LatestReports(ctx, goQuery, 2, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 2 || !all[0].Failed() {
			t.Errorf("expected failed report first, got %d reports", len(all))
		}

		ok, err := db.LatestReports(ctx, goQuery, 2, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ok) != 2 || len(ok[0].Results) != 2 || len(ok[1].Results) != 1 {
			t.Errorf("unexpected successful reports %+v", ok)
		}

		diff := model.CompareResults(ok[1].Results, ok[0].Results)
		if len(diff.Added) != 1 || diff.Added[0].Extra.Owner != "bob" {
			t.Errorf("expected bob to be added, got %+v", diff)
		}
	})

	t.Run("LatestReports with zero limit", func(t *testing.T) {
		t.Parallel()

		got, err := db.LatestReports(ctx, goQuery, 0, false)
		if err != nil || got != nil {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("SeenRepositories counts sightings", func(t *testing.T) {
		t.Parallel()

		repos, err := db.SeenRepositories(ctx, goQuery)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(repos) != 2 {
			t.Fatalf("expected 2 repositories, got %+v", repos)
		}
		if repos[0].Owner != "alice" || repos[0].TimesSeen != 2 || repos[0].Language != "Go" {
			t.Errorf("unexpected first repository %+v", repos[0])
		}
		if !repos[0].FirstSeen.Equal(base) || !repos[0].LastSeen.Equal(base.Add(time.Hour)) {
			t.Errorf("unexpected sightings %v .. %v", repos[0].FirstSeen, repos[0].LastSeen)
		}
	})

	t.Run("unknown query has no history", func(t *testing.T) {
		t.Parallel()

		history, err := db.History(ctx, model.NewQuery([]string{"zig"}, ""))
		if err != nil || len(history) != 0 {
			t.Errorf("got %v, %v", history, err)
		}
	})
}

// TestDeleteQuery tests removing a query's history.
func TestDeleteQuery(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	q := model.NewQuery([]string{"go"}, "")
	other := model.NewQuery([]string{"go"}, "code")

	for _, r := range []*model.SearchReport{newReport(q, 0, "a"), newReport(q, time.Minute, "b"), newReport(other, 0, "c")} {
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
	}

	n, err := db.DeleteQuery(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("got %d, expected 2", n)
	}

	if repos, _ := db.SeenRepositories(ctx, q); len(repos) != 0 {
		t.Errorf("expected results to be removed, got %+v", repos)
	}
	if history, _ := db.History(ctx, other); len(history) != 1 {
		t.Errorf("expected other query to remain, got %+v", history)
	}
}

// TestParseTimestamp tests timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"stored layout", formatTimestamp(base.Add(time.Nanosecond)), base.Add(time.Nanosecond)},
		{"sqlite default", "2026-03-01 12:00:00", base},
		{"rfc3339", "2026-03-01T12:00:00Z", base},
		{"invalid", "yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("got %v, expected %v", got, tt.want)
			}
		})
	}
}
