package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/reposcout/internal/model"
)

// JSONWriter outputs the result list of a report as a JSON array in the
// library's wire format: [{"url": ..., "extra": {"owner": ...}}].
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs report.Results. A failed search writes an empty array.
func (w *JSONWriter) Write(report *model.SearchReport) (int, error) {
	results := report.Results
	if results == nil {
		results = []model.SearchResult{}
	}
	return w.writeJSON(results)
}

// WriteResults outputs results in the wire format.
func (w *JSONWriter) WriteResults(results []model.SearchResult) (int, error) {
	if results == nil {
		results = []model.SearchResult{}
	}
	return w.writeJSON(results)
}

// JSONComparison is the JSON form of a comparison between two searches.
type JSONComparison struct {
	Query    model.Query       `json:"query"`
	OlderID  string            `json:"older_id,omitempty"`
	NewerID  string            `json:"newer_id,omitempty"`
	OlderAt  time.Time         `json:"older_at"`
	NewerAt  time.Time         `json:"newer_at"`
	Changes  *model.Comparison `json:"changes"`
	Modified bool              `json:"modified"`
}

// NewJSONComparison builds the JSON form of the comparison of two reports.
func NewJSONComparison(older, newer *model.SearchReport) *JSONComparison {
	c := compare(older, newer)
	out := &JSONComparison{Changes: c, Modified: c.HasChanges()}
	if older != nil {
		out.Query = older.Query
		out.OlderID = older.ID
		out.OlderAt = older.StartedAt
	}
	if newer != nil {
		out.Query = newer.Query
		out.NewerID = newer.ID
		out.NewerAt = newer.StartedAt
	}
	return out
}

// WriteComparison outputs the comparison as a JSON object.
func (w *JSONWriter) WriteComparison(older, newer *model.SearchReport) (int, error) {
	return w.writeJSON(NewJSONComparison(older, newer))
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a full report with the version that produced it.
type JSONReport struct {
	// Version is the reposcout version that generated this report.
	Version string `json:"version"`

	// Report is the full search report.
	Report *model.SearchReport `json:"report"`

	// Languages is the language distribution of the results.
	Languages []model.LanguageCount `json:"languages"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.SearchReport, version string) *JSONReport {
	return &JSONReport{
		Version:   version,
		Report:    report,
		Languages: model.CountLanguages(report.Results, false),
	}
}

// FullJSONWriter outputs complete reports with metadata.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the full report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.SearchReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}
