package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/reposcout/internal/model"
	"github.com/nao1215/reposcout/internal/proxy"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, run *Run) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, run *Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newTestRun() *Run {
	return NewRun(model.NewQuery([]string{"scraper"}, ""), []proxy.Candidate{"10.0.0.1:8080"})
}

// TestNewRun tests the Run constructor.
func TestNewRun(t *testing.T) {
	t.Parallel()

	run := newTestRun()
	if run.Report == nil {
		t.Fatal("expected report to be created")
	}
	if !run.Proxy.IsDirect() {
		t.Errorf("expected direct proxy config, got %v", run.Proxy)
	}
	if len(run.Candidates) != 1 {
		t.Errorf("expected candidates to be kept, got %v", run.Candidates)
	}
	if run.Report.Query.Terms() != "scraper" {
		t.Errorf("got %q, expected scraper", run.Report.Query.Terms())
	}
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		if !New(WithContinueOnError(true)).continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests step registration order.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "select_proxy"})
	p.AddSteps(&mockStep{name: "fetch"}, &mockStep{name: "extract"})

	names := p.StepNames()
	expected := []string{"select_proxy", "fetch", "extract"}
	if len(names) != len(expected) {
		t.Fatalf("got %v, expected %v", names, expected)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("step %d: got %q, expected %q", i, names[i], expected[i])
		}
	}
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order and records them", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New()
		for _, name := range []string{"a", "b", "c"} {
			p.AddStep(StepFunc{StepName: name, Fn: func(_ context.Context, _ *Run) error {
				order = append(order, name)
				return nil
			}})
		}

		run := newTestRun()
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 3 || order[0] != "a" || order[2] != "c" {
			t.Errorf("wrong execution order: %v", order)
		}
		if len(run.Report.PerformedSteps) != 3 {
			t.Errorf("expected 3 performed steps, got %v", run.Report.PerformedSteps)
		}
		if run.Report.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be stamped")
		}
	})

	t.Run("stops on first error and records it", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("fetch failed")
		later := &mockStep{name: "extract"}

		p := New()
		p.AddStep(&mockStep{name: "fetch", doFunc: func(_ context.Context, _ *Run) error {
			return expectedErr
		}})
		p.AddStep(later)

		run := newTestRun()
		err := p.Execute(context.Background(), run)
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected %v, got %v", expectedErr, err)
		}
		if later.callCount != 0 {
			t.Error("later step should not have been called")
		}
		if !errors.Is(run.Report.Error, expectedErr) || run.Report.ErrorMessage != "fetch failed" {
			t.Errorf("expected error in report, got %v / %q", run.Report.Error, run.Report.ErrorMessage)
		}
		if len(run.Report.PerformedSteps) != 0 {
			t.Errorf("expected no performed steps, got %v", run.Report.PerformedSteps)
		}
	})

	t.Run("continues on error when configured and keeps the first error", func(t *testing.T) {
		t.Parallel()

		first := errors.New("first")
		later := &mockStep{name: "later"}

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{name: "one", doFunc: func(_ context.Context, _ *Run) error { return first }})
		p.AddStep(&mockStep{name: "two", doFunc: func(_ context.Context, _ *Run) error { return errors.New("second") }})
		p.AddStep(later)

		run := newTestRun()
		err := p.Execute(context.Background(), run)
		if !errors.Is(err, first) {
			t.Errorf("expected first error, got %v", err)
		}
		if later.callCount != 1 {
			t.Error("expected later step to run")
		}
		if !errors.Is(run.Report.Error, first) {
			t.Errorf("expected first error in report, got %v", run.Report.Error)
		}
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New()
		p.AddStep(step)

		run := newTestRun()
		err := p.Execute(ctx, run)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not run after cancellation")
		}
		if !run.Report.Failed() {
			t.Error("expected report to be marked failed")
		}
	})

	t.Run("steps share run state", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(StepFunc{StepName: "write", Fn: func(_ context.Context, r *Run) error {
			r.Page = []byte("<html></html>")
			return nil
		}})
		var seen string
		p.AddStep(StepFunc{StepName: "read", Fn: func(_ context.Context, r *Run) error {
			seen = string(r.Page)
			return nil
		}})

		if err := p.Execute(context.Background(), newTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen != "<html></html>" {
			t.Errorf("got %q", seen)
		}
	})
}
