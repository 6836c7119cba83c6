package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/reposcout/internal/config"
	"github.com/nao1215/reposcout/internal/database"
	"github.com/nao1215/reposcout/internal/model"
	"github.com/nao1215/reposcout/internal/report"
)

const historyDateLayout = "2006-01-02 15:04"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [keywords...]",
		Short: "Show and compare saved searches",
		Long: `History reads the search reports saved by 'reposcout search'.

Without keywords it lists every saved query. With keywords it lists the
searches of that query, or with --compare shows which repositories appeared
or disappeared between the latest two successful searches.

Examples:
  # List all saved queries
  reposcout history

  # List the searches for a query
  reposcout history web scraper

  # Compare the latest two searches
  reposcout history --compare web scraper

  # List every repository ever found for a query
  reposcout history --repos web scraper

  # Show one saved report as JSON
  reposcout history --id 6f1c... --json

  # Forget a query
  reposcout history --delete web scraper`,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("type", "t", config.DefaultSearchType,
		"Result category of the query")
	cmd.Flags().Bool("compare", false,
		"Compare the latest two successful searches of the query")
	cmd.Flags().Bool("repos", false,
		"List every repository found for the query")
	cmd.Flags().String("id", "",
		"Show the saved report with this ID")
	cmd.Flags().Bool("delete", false,
		"Delete every saved search of the query")
	cmd.Flags().BoolP("json", "j", false,
		"Output reports and comparisons as JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output reports and comparisons as Markdown")
	cmd.Flags().StringP("config", "c", "",
		"Path to the configuration file")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	searchType string
	compare    bool
	repos      bool
	id         string
	remove     bool
	json       bool
	markdown   bool
}

func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.searchType, err = flags.GetString("type"); err != nil {
		return opts, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.repos, err = flags.GetBool("repos"); err != nil {
		return opts, err
	}
	if opts.id, err = flags.GetString("id"); err != nil {
		return opts, err
	}
	if opts.remove, err = flags.GetBool("delete"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.json && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}
	return opts, nil
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	// Validate before touching the database.
	modes := 0
	for _, set := range []bool{opts.compare, opts.repos, opts.remove} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return errors.New("--compare, --repos and --delete cannot be combined")
	}
	if modes == 1 && len(args) == 0 {
		return errors.New("keywords are required (run 'reposcout history' to list saved queries)")
	}

	cfg, err := loadBaseConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No search history found.")
		fmt.Fprintln(out, "\nUse 'reposcout search <keywords>' to run and save a search.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.id != "" {
		return showReport(ctx, db, out, opts)
	}
	if len(args) == 0 {
		return listQueries(ctx, db, out)
	}

	q := model.NewQuery(args, opts.searchType)
	switch {
	case opts.remove:
		return deleteQuery(ctx, db, out, q)
	case opts.compare:
		return compareLatest(ctx, db, out, q, opts)
	case opts.repos:
		return listRepositories(ctx, db, out, q)
	default:
		return listHistory(ctx, db, out, q)
	}
}

func historyWriter(out io.Writer, opts historyOptions) report.Writer {
	switch {
	case opts.json:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case opts.markdown:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(true))
	}
}

func showReport(ctx context.Context, db *database.SearchDB, out io.Writer, opts historyOptions) error {
	r, err := db.GetReport(ctx, opts.id)
	if err != nil {
		return err
	}
	_, err = historyWriter(out, opts).Write(r)
	return err
}

func listQueries(ctx context.Context, db *database.SearchDB, out io.Writer) error {
	queries, err := db.ListQueries(ctx)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		fmt.Fprintln(out, "No saved queries found in the database.")
		fmt.Fprintln(out, "\nUse 'reposcout search <keywords>' to run and save a search.")
		return nil
	}

	fmt.Fprintf(out, "Saved queries (%d):\n\n", len(queries))
	fmt.Fprintf(out, "  %-40s  %-14s  %8s  %s\n", "Query", "Type", "Searches", "Last searched")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 84))
	for _, qs := range queries {
		fmt.Fprintf(out, "  %-40s  %-14s  %8d  %s\n",
			truncate(qs.Query.Terms(), 40), qs.Query.Type, qs.Searches,
			qs.LastSearched.Local().Format(historyDateLayout))
	}
	fmt.Fprintln(out, "\nUse 'reposcout history <keywords>' to see the searches of a query.")
	return nil
}

func listHistory(ctx context.Context, db *database.SearchDB, out io.Writer, q model.Query) error {
	history, err := db.History(ctx, q)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintf(out, "No search history found for %s\n", q)
		return nil
	}

	fmt.Fprintf(out, "Search history for %s (%d searches):\n\n", q, len(history))
	fmt.Fprintf(out, "  %-36s  %-16s  %7s  %-20s  %s\n", "ID", "Date", "Results", "Proxy", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, meta := range history {
		proxyName := meta.Proxy
		if proxyName == "" {
			proxyName = "direct"
		}
		status := "ok"
		if meta.Failed() {
			status = "error: " + meta.Error
		}
		fmt.Fprintf(out, "  %-36s  %-16s  %7d  %-20s  %s\n",
			meta.ID, meta.StartedAt.Local().Format(historyDateLayout), meta.ResultCount,
			truncate(proxyName, 20), status)
	}
	fmt.Fprintln(out, "\nUse 'reposcout history --compare <keywords>' to compare the latest two searches.")
	return nil
}

func compareLatest(ctx context.Context, db *database.SearchDB, out io.Writer, q model.Query, opts historyOptions) error {
	reports, err := db.LatestReports(ctx, q, 2, true)
	if err != nil {
		return err
	}
	if len(reports) < 2 {
		fmt.Fprintf(out, "Need at least two successful searches of %s to compare (found %d).\n", q, len(reports))
		return nil
	}

	// LatestReports is newest first.
	_, err = historyWriter(out, opts).WriteComparison(reports[1], reports[0])
	return err
}

func listRepositories(ctx context.Context, db *database.SearchDB, out io.Writer, q model.Query) error {
	repos, err := db.SeenRepositories(ctx, q)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		fmt.Fprintf(out, "No repositories found for %s\n", q)
		return nil
	}

	fmt.Fprintf(out, "Repositories found for %s (%d):\n\n", q, len(repos))
	fmt.Fprintf(out, "  %-50s  %-14s  %5s  %-16s  %s\n", "URL", "Language", "Seen", "First seen", "Last seen")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))
	for _, r := range repos {
		lang := r.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Fprintf(out, "  %-50s  %-14s  %5d  %-16s  %s\n",
			truncate(r.URL, 50), truncate(lang, 14), r.TimesSeen,
			r.FirstSeen.Local().Format(historyDateLayout),
			r.LastSeen.Local().Format(historyDateLayout))
	}
	return nil
}

func deleteQuery(ctx context.Context, db *database.SearchDB, out io.Writer, q model.Query) error {
	n, err := db.DeleteQuery(ctx, q)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d searches of %s\n", n, q)
	return nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
