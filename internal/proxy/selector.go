package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Recorder receives probe and selection outcomes. It is satisfied by
// the metrics collector; a nil Recorder records nothing.
type Recorder interface {
	ProbeCompleted(ok bool)
	SelectionCompleted(ok bool)
}

// Selection is the outcome of a successful Choose.
type Selection struct {
	// Config routes requests through Candidate.
	Config Config

	// Candidate is the proxy that answered the probe.
	Candidate Candidate

	// Attempts is the number of probes issued, the successful one included.
	Attempts int
}

// Selector chooses a working proxy from a candidate list.
// It keeps no state between calls apart from its random source, so one
// Selector can be shared by concurrent searches.
type Selector struct {
	prober             Prober
	logger             *slog.Logger
	recorder           Recorder
	withoutReplacement bool

	mu  sync.Mutex
	rng *rand.Rand
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithProber sets the prober. The default is NewHTTPProber().
func WithProber(p Prober) SelectorOption {
	return func(s *Selector) {
		if p != nil {
			s.prober = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SelectorOption {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets where probe and selection outcomes are reported.
func WithRecorder(r Recorder) SelectorOption {
	return func(s *Selector) {
		s.recorder = r
	}
}

// WithSeed makes candidate draws reproducible.
func WithSeed(seed uint64) SelectorOption {
	return func(s *Selector) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // not security sensitive
	}
}

// WithoutReplacement draws candidates as a random permutation, so the
// len(candidates) attempts probe every candidate exactly once. By default
// each attempt draws uniformly with replacement and may repeat a candidate.
func WithoutReplacement() SelectorOption {
	return func(s *Selector) {
		s.withoutReplacement = true
	}
}

// NewSelector creates a Selector.
func NewSelector(opts ...SelectorOption) *Selector {
	now := uint64(time.Now().UnixNano()) //nolint:gosec // seed only
	s := &Selector{
		prober: NewHTTPProber(),
		logger: slog.Default(),
		rng:    rand.New(rand.NewPCG(now, now>>1)), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the Config of the first candidate that passes a probe,
// or an empty Config when none does. It never fails: an unusable pool
// means a direct connection.
func (s *Selector) Select(ctx context.Context, candidates []Candidate) Config {
	sel, err := s.Choose(ctx, candidates)
	if err != nil {
		return Direct()
	}
	return sel.Config
}

// Choose makes up to len(candidates) attempts. Each attempt draws one
// candidate and probes it; the first success is returned at once.
// Attempts stop early if ctx is done. When nothing succeeds Choose logs
// a warning and returns ErrNoUsableProxy together with the attempt count.
func (s *Selector) Choose(ctx context.Context, candidates []Candidate) (Selection, error) {
	draw := s.drawer(len(candidates))
	attempts := 0

	for attempts < len(candidates) {
		if err := ctx.Err(); err != nil {
			s.logger.Debug("proxy selection interrupted", "attempts", attempts, "error", err)
			break
		}

		c := candidates[draw(attempts)]
		attempts++

		cfg, err := s.try(ctx, c)
		if err != nil {
			s.logger.Debug("proxy probe failed",
				"proxy", c.Redacted(),
				"attempt", attempts,
				"error", err)
			continue
		}

		s.logger.Info("selected proxy", "proxy", c.Redacted(), "attempts", attempts)
		s.recordSelection(true)
		return Selection{Config: cfg, Candidate: c, Attempts: attempts}, nil
	}

	s.logger.Warn("no working proxy found, falling back to direct connection",
		"candidates", len(candidates),
		"attempts", attempts)
	s.recordSelection(false)
	return Selection{Config: Direct(), Attempts: attempts}, fmt.Errorf("%w after %d attempts", ErrNoUsableProxy, attempts)
}

// try probes c and returns its Config on success.
func (s *Selector) try(ctx context.Context, c Candidate) (Config, error) {
	err := s.prober.Probe(ctx, c)
	if err == nil {
		var cfg Config
		cfg, err = ConfigFor(c)
		if err == nil {
			s.recordProbe(true)
			return cfg, nil
		}
	}
	s.recordProbe(false)
	return nil, err
}

// drawer returns a function mapping the attempt number to a candidate index.
func (s *Selector) drawer(n int) func(attempt int) int {
	if n == 0 {
		return func(int) int { return 0 }
	}
	if s.withoutReplacement {
		s.mu.Lock()
		perm := s.rng.Perm(n)
		s.mu.Unlock()
		return func(attempt int) int { return perm[attempt] }
	}
	return func(int) int {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.rng.IntN(n)
	}
}

func (s *Selector) recordProbe(ok bool) {
	if s.recorder != nil {
		s.recorder.ProbeCompleted(ok)
	}
}

func (s *Selector) recordSelection(ok bool) {
	if s.recorder != nil {
		s.recorder.SelectionCompleted(ok)
	}
}
