package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/reposcout/internal/model"
	"github.com/nao1215/reposcout/internal/proxy"
)

// Run carries the state of one search between steps.
type Run struct {
	// Query is what is being searched for.
	Query model.Query

	// Candidates are the proxies the select step may choose from.
	Candidates []proxy.Candidate

	// Proxy is set by the select step. Empty means direct.
	Proxy proxy.Config

	// Page is the fetched search page, UTF-8 encoded.
	Page []byte

	// Report accumulates the outcome.
	Report *model.SearchReport
}

// NewRun creates a Run with a fresh report for q.
func NewRun(q model.Query, candidates []proxy.Candidate) *Run {
	return &Run{
		Query:      q,
		Candidates: candidates,
		Proxy:      proxy.Direct(),
		Report:     model.NewSearchReport(q),
	}
}

// Step is one stage of a search.
type Step interface {
	// Do executes the step. Returning an error stops the pipeline.
	// Soft failures are recorded in the Run and return nil.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging.
	Name() string
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, run *Run) error
}

// Do implements Step.
func (s StepFunc) Do(ctx context.Context, run *Run) error {
	return s.Fn(ctx, run)
}

// Name implements Step.
func (s StepFunc) Name() string {
	return s.StepName
}

// Pipeline executes steps in order. It holds no per-run state, so one
// Pipeline may execute many runs concurrently once its steps are added.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing steps after one fails. The first
// error is still recorded in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step in order and stamps the report's finish time.
// Context cancellation is checked before each step; steps bound their own
// network calls with timeouts.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	defer run.Report.Finish()

	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("search cancelled",
				"step", step.Name(),
				"query", run.Query.Terms(),
				"reason", err,
			)
			if firstErr == nil {
				run.Report.Fail(err)
			}
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"query", run.Query.Terms(),
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"query", run.Query.Terms(),
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
				run.Report.Fail(err)
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		run.Report.PerformedSteps = append(run.Report.PerformedSteps, step.Name())
	}
	return firstErr
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
