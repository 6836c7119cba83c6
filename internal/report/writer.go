package report

import (
	"io"

	"github.com/nao1215/reposcout/internal/model"
)

// Writer outputs search reports in one format.
type Writer interface {
	// Write outputs one report and returns the number of bytes written.
	Write(report *model.SearchReport) (int, error)

	// WriteComparison outputs the difference between an older and a newer
	// search of the same query.
	WriteComparison(older, newer *model.SearchReport) (int, error)
}

// MultiWriter writes to several Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer, stopping on the first error.
func (m *MultiWriter) Write(report *model.SearchReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteComparison outputs the comparison to every Writer.
func (m *MultiWriter) WriteComparison(older, newer *model.SearchReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteComparison(older, newer)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll writes every report with w and returns the total bytes written.
func WriteAll(w Writer, reports []*model.SearchReport) (int, error) {
	var total int
	for _, r := range reports {
		n, err := w.Write(r)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// compare returns the comparison of two reports, tolerating nil.
func compare(older, newer *model.SearchReport) *model.Comparison {
	var o, n []model.SearchResult
	if older != nil {
		o = older.Results
	}
	if newer != nil {
		n = newer.Results
	}
	return model.CompareResults(o, n)
}
