package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/reposcout/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.SearchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeResults(md, report)
	w.writeLanguages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SearchReport) {
	md.H1("reposcout Search Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Query", "`" + escapeCell(report.Query.Terms()) + "`"},
			{"Type", report.Query.Type},
			{"Search URL", escapeCell(report.SearchURL)},
			{"Search Date", report.StartedAt.Format(dateLayout)},
			{"Proxy", escapeCell(proxyLabel(report))},
			{"Results", strconv.Itoa(len(report.Results))},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

func statusText(report *model.SearchReport) string {
	if report.Failed() {
		return "❌ Error - " + escapeCell(report.ErrorMessage)
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.SearchReport) {
	switch {
	case report.Failed():
		md.Cautionf("The search page could not be fetched: %s", report.ErrorMessage)
	case len(report.Results) == 0:
		md.Note("The page was fetched but no results were recognized.")
	case report.Proxy == "" && report.ProbeAttempts > 0:
		md.Warningf("No proxy passed the probe after %d attempt(s); the search went out directly.", report.ProbeAttempts)
	default:
		return
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.SearchReport) {
	md.H2("Repositories")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No repositories found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Results))
	for i, r := range report.Results {
		lang := r.Language()
		if lang == "" {
			lang = "-"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			link(r.Repository(baseOf(report, r)), r.URL),
			escapeCell(r.Extra.Owner),
			escapeCell(lang),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Repository", "Owner", "Language"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeLanguages(md *markdown.Markdown, report *model.SearchReport) {
	counts := model.CountLanguages(report.Results, true)
	if len(counts) == 0 {
		return
	}

	md.H2("Languages")
	md.PlainText("")

	rows := make([][]string, len(counts))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Language Distribution"),
		piechart.WithShowData(true),
	)
	for i, c := range counts {
		rows[i] = []string{escapeCell(languageLabel(c.Language)), strconv.Itoa(c.Count)}
		chart.LabelAndIntValue(languageLabel(c.Language), uint64(c.Count)) //nolint:gosec // counts are non-negative
	}
	md.Table(markdown.TableSet{
		Header: []string{"Language", "Repositories"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// WriteComparison outputs the difference between two searches.
func (w *MarkdownWriter) WriteComparison(older, newer *model.SearchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	c := compare(older, newer)

	md.H1("reposcout Search Comparison")
	md.PlainText("")

	rows := [][]string{}
	if newer != nil {
		rows = append(rows, []string{"Query", "`" + escapeCell(newer.Query.Terms()) + "`"}, []string{"Type", newer.Query.Type})
	}
	if older != nil {
		rows = append(rows, []string{"Before", fmt.Sprintf("%s (%d results)", older.StartedAt.Format(dateLayout), len(older.Results))})
	}
	if newer != nil {
		rows = append(rows, []string{"After", fmt.Sprintf("%s (%d results)", newer.StartedAt.Format(dateLayout), len(newer.Results))})
	}
	rows = append(rows,
		[]string{"New", strconv.Itoa(len(c.Added))},
		[]string{"Gone", strconv.Itoa(len(c.Removed))},
		[]string{"Language changed", strconv.Itoa(len(c.LanguageChanged))},
		[]string{"Unchanged", strconv.Itoa(c.Retained)},
	)
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	if !c.HasChanges() {
		md.Tip("The result set did not change.")
		md.PlainText("")
	} else {
		writeChangeTable(md, "New Repositories", c.Added)
		writeChangeTable(md, "Gone Repositories", c.Removed)
		writeChangeTable(md, "Language Changed", c.LanguageChanged)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func writeChangeTable(md *markdown.Markdown, title string, results []model.SearchResult) {
	if len(results) == 0 {
		return
	}
	md.H2(title)
	md.PlainText("")

	rows := make([][]string, len(results))
	for i, r := range results {
		lang := r.Language()
		if lang == "" {
			lang = "-"
		}
		rows[i] = []string{link(r.URL, r.URL), escapeCell(r.Extra.Owner), escapeCell(lang)}
	}
	md.Table(markdown.TableSet{Header: []string{"Repository", "Owner", "Language"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [reposcout](https://github.com/nao1215/reposcout)*")
}

// baseOf recovers the site prefix of r from the search URL of report.
func baseOf(report *model.SearchReport, r model.SearchResult) string {
	if i := strings.Index(report.SearchURL, "/search?"); i > 0 {
		return report.SearchURL[:i]
	}
	if i := strings.Index(r.URL, "/"+r.Extra.Owner+"/"); i > 0 {
		return r.URL[:i]
	}
	return ""
}

func link(text, url string) string {
	return fmt.Sprintf("[%s](%s)", escapeCell(text), url)
}

// escapeCell keeps pipes from breaking table rows.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
