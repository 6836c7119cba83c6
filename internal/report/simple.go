package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/reposcout/internal/model"
)

const (
	ruleWidth  = 70
	dateLayout = "2006-01-02 15:04:05 MST"
)

// SimpleWriter outputs human-readable text for the terminal.
type SimpleWriter struct {
	baseWriter

	// showLanguages adds the language distribution section.
	showLanguages bool

	// verbose adds proxy and timing details.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithLanguageSummary adds a language distribution section.
func WithLanguageSummary(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showLanguages = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:    newBaseWriter(output),
		showLanguages: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.SearchReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeResults(&sb, report)
	if w.showLanguages {
		w.writeLanguages(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.SearchReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                        REPOSCOUT SEARCH REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Query:        %s\n", report.Query.Terms())
	fmt.Fprintf(sb, "Type:         %s\n", report.Query.Type)
	fmt.Fprintf(sb, "Search Date:  %s\n", report.StartedAt.Format(dateLayout))
	fmt.Fprintf(sb, "Results:      %d\n", len(report.Results))

	if w.verbose {
		fmt.Fprintf(sb, "Search URL:   %s\n", report.SearchURL)
		fmt.Fprintf(sb, "Proxy:        %s\n", proxyLabel(report))
		fmt.Fprintf(sb, "Probes:       %d\n", report.ProbeAttempts)
		fmt.Fprintf(sb, "Duration:     %s\n", report.Duration())
	}

	if report.Failed() {
		fmt.Fprintf(sb, "Status:       ERROR - %s\n", report.ErrorMessage)
	} else {
		sb.WriteString("Status:       Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.SearchReport) {
	section(sb, "REPOSITORIES")

	if len(report.Results) == 0 {
		sb.WriteString("  No results\n\n")
		return
	}
	for i, r := range report.Results {
		fmt.Fprintf(sb, "  %3d. %s\n", i+1, r.URL)
		lang := r.Language()
		if lang == "" {
			lang = "-"
		}
		fmt.Fprintf(sb, "       owner: %s  language: %s\n", r.Extra.Owner, lang)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeLanguages(sb *strings.Builder, report *model.SearchReport) {
	counts := model.CountLanguages(report.Results, true)
	if len(counts) == 0 {
		return
	}

	section(sb, "LANGUAGES")
	for _, c := range counts {
		fmt.Fprintf(sb, "  %-20s %d\n", languageLabel(c.Language), c.Count)
	}
	sb.WriteString("\n")
}

// WriteComparison outputs the repositories that appeared or disappeared
// between two searches.
func (w *SimpleWriter) WriteComparison(older, newer *model.SearchReport) (int, error) {
	var sb strings.Builder
	c := compare(older, newer)

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                        REPOSCOUT SEARCH COMPARISON\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	if newer != nil {
		fmt.Fprintf(&sb, "Query:   %s (%s)\n", newer.Query.Terms(), newer.Query.Type)
	}
	if older != nil {
		fmt.Fprintf(&sb, "Before:  %s (%d results)\n", older.StartedAt.Format(dateLayout), len(older.Results))
	}
	if newer != nil {
		fmt.Fprintf(&sb, "After:   %s (%d results)\n", newer.StartedAt.Format(dateLayout), len(newer.Results))
	}
	sb.WriteString("\n")

	if !c.HasChanges() {
		fmt.Fprintf(&sb, "No changes (%d repositories unchanged)\n\n", c.Retained)
		w.writeFooter(&sb)
		return io.WriteString(w.output, sb.String())
	}

	writeChangeList(&sb, "NEW", "+", c.Added)
	writeChangeList(&sb, "GONE", "-", c.Removed)
	writeChangeList(&sb, "LANGUAGE CHANGED", "~", c.LanguageChanged)
	fmt.Fprintf(&sb, "Unchanged: %d\n\n", c.Retained)

	w.writeFooter(&sb)
	return io.WriteString(w.output, sb.String())
}

func writeChangeList(sb *strings.Builder, title, marker string, results []model.SearchResult) {
	if len(results) == 0 {
		return
	}
	section(sb, fmt.Sprintf("%s (%d)", title, len(results)))
	for _, r := range results {
		fmt.Fprintf(sb, "  [%s] %s", marker, r.URL)
		if lang := r.Language(); lang != "" {
			fmt.Fprintf(sb, " (%s)", lang)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by reposcout\n")
	sb.WriteString("https://github.com/nao1215/reposcout\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func proxyLabel(report *model.SearchReport) string {
	if report.Proxy == "" {
		return "direct"
	}
	return report.Proxy
}

func languageLabel(lang string) string {
	if lang == "" {
		return "(unknown)"
	}
	return lang
}
