package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/reposcout/internal/config"
	"github.com/nao1215/reposcout/internal/database"
	"github.com/nao1215/reposcout/internal/log"
	"github.com/nao1215/reposcout/internal/metrics"
	"github.com/nao1215/reposcout/internal/model"
	"github.com/nao1215/reposcout/internal/proxy"
	"github.com/nao1215/reposcout/internal/report"
	"github.com/nao1215/reposcout/internal/search"
	"github.com/nao1215/reposcout/internal/tor"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Search GitHub and extract the results",
		Long: `Search fetches the GitHub result page for the given keywords and lists the
repositories found, with their owner and primary language.

Before the fetch, candidates given with --proxy, --proxy-list, the config
file or REPOSCOUT_PROXIES are probed in random order. The first one that
answers is used for the search. When none answers, the search goes out
directly and a warning is logged.

Reports are saved to the history database unless --no-save is given.
With --json the result list is printed in the wire format, one JSON
document per query.

Examples:
  # Search repositories directly
  reposcout search web scraper

  # Try two proxies and a list file
  reposcout search -x 10.0.0.1:8080 -x socks5://10.0.0.2:1080 -P proxies.txt golang cli

  # Search code instead of repositories
  reposcout search -t code "http.Client"

  # Route through an embedded Tor daemon
  reposcout search --tor web scraper

  # Search every query in a file, three at a time
  reposcout search -q queries.txt -b 3 --markdown -o report.md`,
		RunE: runSearchCmd,
	}

	addProxyFlags(cmd)
	addRequestFlags(cmd)
	cmd.Flags().StringP("queries", "q", "",
		"File with one query per line")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of queries searched concurrently")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the results as JSON")
	cmd.Flags().Bool("full", false,
		"With --json, output the full report instead of the result list")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the report in Markdown format")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to a file instead of stdout")

	addStorageFlags(cmd)

	return cmd
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return err
	}

	queries, err := collectQueries(cfg)
	if err != nil {
		return err
	}

	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSearch(ctx, cmd, cfg, queries, full, logger)
}

// addProxyFlags registers the proxy and Tor flags shared by search and serve.
func addProxyFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("proxy", "x", nil,
		"Proxy candidate as host:port or scheme://host:port (repeatable)")
	cmd.Flags().StringP("proxy-list", "P", "",
		"File with one proxy candidate per line")
	cmd.Flags().Bool("without-replacement", false,
		"Probe each candidate at most once per search")
	cmd.Flags().Duration("probe-timeout", config.DefaultProbeTimeout,
		"Timeout for one proxy probe")
	cmd.Flags().String("probe-url", config.DefaultProbeURL,
		"Echo endpoint probed through each candidate")

	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and add it as a candidate")
	cmd.Flags().String("tor-addr", "",
		"SOCKS address of a running Tor daemon to add as a candidate")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for the embedded Tor daemon to bootstrap")
}

// addRequestFlags registers the flags that shape the search request.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("type", "t", config.DefaultSearchType,
		"Result category (repositories, code, issues, users ...)")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for fetching the result page")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Site to search")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
}

// addStorageFlags registers the configuration file and database flags.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Path to the configuration file (default: .reposcout in the current or home directory)")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().Bool("no-save", false,
		"Do not save the reports to the history database")
}

// getVerboseFlag reads the persistent --verbose flag.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a logger that redacts proxy credentials.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return log.NewSecureLogger(w, verbose)
}

// buildConfig layers defaults, the config file, the environment and the
// command line flags, each overriding the previous one.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadBaseConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := applySearchFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Keywords = args
	return cfg, nil
}

// loadBaseConfig returns the configuration before flags are applied:
// defaults, then the config file, then the environment (including .env).
func loadBaseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	path := config.FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}
	if path != "" {
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg.ApplyFile(f)
		cfg.ConfigFilePath = path
	}

	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.ApplyEnv(nil)

	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applySearchFlags copies the flags the user set onto cfg. Flags left at
// their defaults do not override the file or the environment. Flags the
// command does not define are never reported as changed.
func applySearchFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	stringFlags := map[string]*string{
		"proxy-list": &cfg.ProxyListFile,
		"probe-url":  &cfg.ProbeURL,
		"tor-addr":   &cfg.TorAddress,
		"type":       &cfg.SearchType,
		"base-url":   &cfg.BaseURL,
		"user-agent": &cfg.UserAgent,
		"queries":    &cfg.QueriesFile,
		"output":     &cfg.ReportFile,
	}
	for name, dst := range stringFlags {
		if flags.Changed(name) {
			if *dst, err = flags.GetString(name); err != nil {
				return err
			}
		}
	}

	durationFlags := map[string]*time.Duration{
		"probe-timeout": &cfg.ProbeTimeout,
		"timeout":       &cfg.Timeout,
		"tor-timeout":   &cfg.TorStartupTimeout,
	}
	for name, dst := range durationFlags {
		if flags.Changed(name) {
			if *dst, err = flags.GetDuration(name); err != nil {
				return err
			}
		}
	}

	boolFlags := map[string]*bool{
		"without-replacement": &cfg.WithoutReplacement,
		"tor":                 &cfg.UseTor,
		"json":                &cfg.JSONReport,
		"markdown":            &cfg.MarkdownReport,
	}
	for name, dst := range boolFlags {
		if flags.Changed(name) {
			if *dst, err = flags.GetBool(name); err != nil {
				return err
			}
		}
	}

	if flags.Changed("proxy") {
		if cfg.Proxies, err = flags.GetStringArray("proxy"); err != nil {
			return err
		}
	}
	if flags.Changed("batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return err
		}
	}
	if flags.Changed("no-save") {
		noSave, err := flags.GetBool("no-save")
		if err != nil {
			return err
		}
		cfg.SaveToDB = !noSave
	}
	return nil
}

// collectQueries returns the query built from the keywords followed by
// those read from the queries file.
func collectQueries(cfg *config.Config) ([]model.Query, error) {
	var queries []model.Query
	if len(cfg.Keywords) > 0 {
		queries = append(queries, model.NewQuery(cfg.Keywords, cfg.SearchType))
	}
	if cfg.QueriesFile != "" {
		fromFile, err := readQueriesFile(cfg.QueriesFile, cfg.SearchType)
		if err != nil {
			return nil, err
		}
		queries = append(queries, fromFile...)
	}
	if len(queries) == 0 {
		return nil, config.ErrNoKeywords
	}
	return queries, nil
}

func readQueriesFile(path, searchType string) ([]model.Query, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided queries file is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open queries file: %w", err)
	}
	defer f.Close()
	return readQueries(f, searchType)
}

// readQueries parses one query per line. Keywords are separated by
// whitespace. Blank lines and lines starting with # are ignored.
func readQueries(r io.Reader, searchType string) ([]model.Query, error) {
	var queries []model.Query
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, model.NewQuery(strings.Fields(line), searchType))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	return queries, nil
}

// runSearch performs every query and outputs the reports.
func runSearch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, queries []model.Query, full bool, logger *slog.Logger) error {
	status := cmd.ErrOrStderr()

	extra, cleanup, err := torCandidates(ctx, cfg, status, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	searcher, err := search.NewFromConfig(cfg, logger, metrics.New(), extra...)
	if err != nil {
		return err
	}

	var db *database.SearchDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	out, closeOutput, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := newReportWriter(cfg, out, full)

	if len(queries) > 1 {
		fmt.Fprintf(status, "Searching %d queries (concurrency: %d)...\n", len(queries), cfg.BatchSize)
	} else {
		fmt.Fprintf(status, "Searching %s...\n", queries[0])
	}
	startTime := time.Now()

	reports, err := searcher.SearchAll(ctx, queries)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	for _, r := range reports {
		if r == nil {
			continue
		}
		if _, err := writer.Write(r); err != nil {
			logger.Error("report failed", "query", r.Query.String(), "error", err)
		}
		if err := saveReport(ctx, db, r, logger); err != nil {
			logger.Error("failed to save search report", "query", r.Query.String(), "error", err)
		}
	}

	fmt.Fprintf(status, "Search completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	return err
}

// torCandidates returns the Tor proxies to add to the candidates. The
// returned cleanup stops an embedded daemon and must always be called.
func torCandidates(ctx context.Context, cfg *config.Config, status io.Writer, logger *slog.Logger) ([]proxy.Candidate, func(), error) {
	var candidates []proxy.Candidate
	cleanup := func() {}

	if cfg.TorAddress != "" {
		c, err := tor.ExternalCandidate(ctx, cfg.TorAddress, tor.DefaultCheckTimeout)
		if err != nil {
			return nil, cleanup, err
		}
		logger.Info("using external Tor proxy", "addr", cfg.TorAddress)
		candidates = append(candidates, c)
	}

	if cfg.UseTor {
		fmt.Fprintln(status, "Starting embedded Tor daemon...")
		fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := embedded.Start(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		cleanup = func() {
			if err := embedded.Stop(); err != nil {
				logger.Warn("failed to stop embedded Tor", "error", err)
			}
		}

		c, err := embedded.Candidate()
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		logger.Info("embedded Tor daemon started",
			"socksAddr", embedded.SocksAddr(),
			"controlAddr", embedded.ControlAddr(),
		)
		fmt.Fprintf(status, "SOCKS proxy: %s\n\n", embedded.SocksAddr())
		candidates = append(candidates, c)
	}

	return candidates, cleanup, nil
}

// openOutput returns path opened for writing, or fallback when path is empty.
func openOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // best effort close
}

// newReportWriter selects the writer for the requested format.
func newReportWriter(cfg *config.Config, out io.Writer, full bool) report.Writer {
	switch {
	case cfg.JSONReport && full:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}

// saveReport stores r in db. A nil db is a no-op.
func saveReport(ctx context.Context, db *database.SearchDB, r *model.SearchReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	if err := db.SaveReport(ctx, r); err != nil {
		return fmt.Errorf("failed to save search report: %w", err)
	}
	logger.Info("search report saved to database", "query", r.Query.String(), "id", r.ID)
	return nil
}
