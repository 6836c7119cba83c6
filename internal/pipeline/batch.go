package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/reposcout/internal/model"
)

// DefaultConcurrency is the number of searches run at once.
const DefaultConcurrency = 1

// BatchProcessor runs independent searches concurrently.
type BatchProcessor struct {
	pipelineFactory func() *Pipeline
	runFactory      func(model.Query) *Run
	concurrency     int
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets how many searches run at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithRunFactory sets how the Run of each query is created. The default
// creates a Run without proxy candidates.
func WithRunFactory(f func(model.Query) *Run) BatchOption {
	return func(b *BatchProcessor) {
		if f != nil {
			b.runFactory = f
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. pipelineFactory is called
// once per search.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		runFactory: func(q model.Query) *Run {
			return NewRun(q, nil)
		},
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// Concurrency returns the configured limit.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// ProcessBatch searches every query and returns the reports in query order.
// A failed search does not stop the others; its error is in its report.
// The returned error is non-nil only when ctx was cancelled, in which case
// reports of searches that never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, queries []model.Query) ([]*model.SearchReport, error) {
	results := make([]*model.SearchReport, len(queries))
	err := bp.ProcessBatchWithCallback(ctx, queries, func(report *model.SearchReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback searches every query and calls callback as each
// search completes. callback runs on the search's goroutine.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	queries []model.Query,
	callback func(report *model.SearchReport, index int),
) error {
	bp.logger.Info("starting batch search",
		"total_queries", len(queries),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("searching",
				"query", q.Terms(),
				"index", i+1,
				"total", len(queries),
			)

			run := bp.runFactory(q)
			if err := bp.pipelineFactory().Execute(ctx, run); err != nil {
				bp.logger.Warn("search failed", "query", q.Terms(), "error", err)
			}
			callback(run.Report, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch search complete",
		"total_queries", len(queries),
		"elapsed", time.Since(start),
	)
	return err
}
