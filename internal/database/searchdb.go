package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/reposcout/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "reposcout.db"

// timestampLayout is fixed-width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SearchDB stores search reports.
type SearchDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures SearchDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the database in dbDir.
func Open(dbDir string, opts Options) (*SearchDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &SearchDB{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := sdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return sdb, nil
}

// Path returns the database file path.
func (sdb *SearchDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *SearchDB) Close() error {
	return sdb.db.Close()
}

func (sdb *SearchDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		query_key TEXT NOT NULL,
		keywords TEXT NOT NULL,
		search_type TEXT NOT NULL,
		started_at TEXT NOT NULL,
		status_code INTEGER DEFAULT 0,
		result_count INTEGER DEFAULT 0,
		fingerprint TEXT,
		proxy TEXT,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_searches_key ON searches(query_key);
	CREATE INDEX IF NOT EXISTS idx_searches_started ON searches(started_at);

	CREATE TABLE IF NOT EXISTS results (
		search_id TEXT NOT NULL REFERENCES searches(id),
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		owner TEXT NOT NULL,
		language TEXT,
		PRIMARY KEY (search_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_results_url ON results(url);
	`
	_, err := sdb.db.ExecContext(ctx, schema)
	return err
}

// SaveReport stores r and its results. Saving a report with an ID that is
// already stored replaces it.
func (sdb *SearchDB) SaveReport(ctx context.Context, r *model.SearchReport) (err error) {
	if r == nil {
		return ErrNilReport
	}

	reportJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	keywordsJSON, err := json.Marshal(r.Query.Keywords)
	if err != nil {
		return fmt.Errorf("failed to serialize keywords: %w", err)
	}

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM results WHERE search_id = ?`, r.ID); err != nil {
		return fmt.Errorf("failed to replace search results: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM searches WHERE id = ?`, r.ID); err != nil {
		return fmt.Errorf("failed to replace search report: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO searches (id, query_key, keywords, search_type, started_at, status_code, result_count, fingerprint, proxy, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Query.Key(),
		string(keywordsJSON),
		r.Query.Type,
		formatTimestamp(r.StartedAt),
		r.StatusCode,
		len(r.Results),
		r.Fingerprint,
		r.Proxy,
		r.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save search report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO results (search_id, position, url, owner, language)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, res := range r.Results {
		if _, err = stmt.ExecContext(ctx, r.ID, i, res.URL, res.Extra.Owner, res.Language()); err != nil {
			return fmt.Errorf("failed to save result %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit search report: %w", err)
	}
	return nil
}

// QuerySummary describes one distinct query in the history.
type QuerySummary struct {
	// Key is the query key. See model.Query.Key.
	Key string

	// Query is the most recent form of the query.
	Query model.Query

	// Searches is the number of stored searches.
	Searches int

	// LastSearched is when the most recent search started.
	LastSearched time.Time
}

// ListQueries returns every stored query, most recently searched first.
func (sdb *SearchDB) ListQueries(ctx context.Context) ([]QuerySummary, error) {
	query := `
	SELECT s.query_key, s.keywords, s.search_type, g.n, g.last
	FROM searches s
	JOIN (
		SELECT query_key, COUNT(*) AS n, MAX(started_at) AS last
		FROM searches
		GROUP BY query_key
	) g ON g.query_key = s.query_key AND g.last = s.started_at
	GROUP BY s.query_key
	ORDER BY g.last DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var out []QuerySummary
	for rows.Next() {
		var (
			qs       QuerySummary
			keywords string
			last     string
		)
		if err := rows.Scan(&qs.Key, &keywords, &qs.Query.Type, &qs.Searches, &last); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &qs.Query.Keywords); err != nil {
			return nil, fmt.Errorf("failed to parse keywords: %w", err)
		}
		qs.LastSearched = parseTimestamp(last)
		out = append(out, qs)
	}
	return out, rows.Err()
}

// ReportMetadata summarizes a stored search without loading its results.
type ReportMetadata struct {
	ID          string
	Key         string
	StartedAt   time.Time
	StatusCode  int
	ResultCount int
	Fingerprint string
	Proxy       string
	Error       string
}

// Failed reports whether the search stopped on an error.
func (m ReportMetadata) Failed() bool {
	return m.Error != ""
}

// History returns metadata for every search of q, newest first.
func (sdb *SearchDB) History(ctx context.Context, q model.Query) ([]ReportMetadata, error) {
	query := `
	SELECT id, query_key, started_at, status_code, result_count, fingerprint, proxy, error
	FROM searches
	WHERE query_key = ?
	ORDER BY started_at DESC, rowid DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, q.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to get search history: %w", err)
	}
	defer rows.Close()

	var out []ReportMetadata
	for rows.Next() {
		var (
			meta                     ReportMetadata
			started                  string
			fingerprint, proxy, errs sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Key, &started, &meta.StatusCode, &meta.ResultCount, &fingerprint, &proxy, &errs); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.Fingerprint = fingerprint.String
		meta.Proxy = proxy.String
		meta.Error = errs.String
		out = append(out, meta)
	}
	return out, rows.Err()
}

// LatestReports returns up to n reports for q, newest first.
// Failed searches are skipped when successfulOnly is set.
func (sdb *SearchDB) LatestReports(ctx context.Context, q model.Query, n int, successfulOnly bool) ([]*model.SearchReport, error) {
	if n <= 0 {
		return nil, nil
	}

	query := `
	SELECT report_json FROM searches
	WHERE query_key = ?
	`
	if successfulOnly {
		query += " AND (error IS NULL OR error = '')"
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"

	rows, err := sdb.db.QueryContext(ctx, query, q.Key(), n)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reports: %w", err)
	}
	defer rows.Close()

	var out []*model.SearchReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r, err := decodeReport(reportJSON)
		if err != nil {
			continue // skip malformed reports
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetReport returns the report with the given ID.
func (sdb *SearchDB) GetReport(ctx context.Context, id string) (*model.SearchReport, error) {
	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, `SELECT report_json FROM searches WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get search report: %w", err)
	}
	return decodeReport(reportJSON)
}

// SeenRepository is a repository that appeared in the results of a query.
type SeenRepository struct {
	URL       string
	Owner     string
	Language  string
	FirstSeen time.Time
	LastSeen  time.Time
	TimesSeen int
}

// SeenRepositories returns every repository found for q, most often seen
// first. Language is the one recorded by the most recent sighting.
func (sdb *SearchDB) SeenRepositories(ctx context.Context, q model.Query) ([]SeenRepository, error) {
	query := `
	SELECT r.url, r.owner,
		(SELECT r2.language FROM results r2 JOIN searches s2 ON s2.id = r2.search_id
		 WHERE r2.url = r.url AND s2.query_key = ? ORDER BY s2.started_at DESC LIMIT 1),
		MIN(s.started_at), MAX(s.started_at), COUNT(DISTINCT s.id)
	FROM results r
	JOIN searches s ON s.id = r.search_id
	WHERE s.query_key = ?
	GROUP BY r.url, r.owner
	ORDER BY COUNT(DISTINCT s.id) DESC, r.url
	`

	key := q.Key()
	rows, err := sdb.db.QueryContext(ctx, query, key, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get seen repositories: %w", err)
	}
	defer rows.Close()

	var out []SeenRepository
	for rows.Next() {
		var (
			repo        SeenRepository
			language    sql.NullString
			first, last string
		)
		if err := rows.Scan(&repo.URL, &repo.Owner, &language, &first, &last, &repo.TimesSeen); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		repo.Language = language.String
		repo.FirstSeen = parseTimestamp(first)
		repo.LastSeen = parseTimestamp(last)
		out = append(out, repo)
	}
	return out, rows.Err()
}

// DeleteQuery removes every stored search of q and returns how many were
// removed.
func (sdb *SearchDB) DeleteQuery(ctx context.Context, q model.Query) (n int64, err error) {
	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	key := q.Key()
	if _, err = tx.ExecContext(ctx, `DELETE FROM results WHERE search_id IN (SELECT id FROM searches WHERE query_key = ?)`, key); err != nil {
		return 0, fmt.Errorf("failed to delete results: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM searches WHERE query_key = ?`, key)
	if err != nil {
		return 0, fmt.Errorf("failed to delete query: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n, nil
}

func decodeReport(s string) (*model.SearchReport, error) {
	var r model.SearchReport
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	if r.ErrorMessage != "" {
		r.Error = errors.New(r.ErrorMessage)
	}
	if r.Results == nil {
		r.Results = make([]model.SearchResult, 0)
	}
	return &r, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats lists the layouts parseTimestamp accepts, most specific
// first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
