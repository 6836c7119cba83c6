package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/reposcout/internal/extract"
	"github.com/nao1215/reposcout/internal/metrics"
	"github.com/nao1215/reposcout/internal/model"
	"github.com/nao1215/reposcout/internal/pipeline"
	"github.com/nao1215/reposcout/internal/proxy"
)

const (
	// DefaultTimeout bounds the fetch of the search page.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent is sent with the search request.
	DefaultUserAgent = "Mozilla/5.0 (compatible; reposcout/1.0; +https://github.com/nao1215/reposcout)"

	// DefaultMaxBodySize caps how much of the page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Searcher performs searches. It is safe for concurrent use.
type Searcher struct {
	baseURL     string
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	candidates  []proxy.Candidate
	batchSize   int

	selector  *proxy.Selector
	extractor *extract.Extractor
	metrics   *metrics.Collector
	logger    *slog.Logger

	pipeline *pipeline.Pipeline
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithBaseURL sets the site searched. It is ignored when WithExtractor is
// also given; the extractor's base URL wins.
func WithBaseURL(base string) Option {
	return func(s *Searcher) {
		if base != "" {
			s.baseURL = base
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Searcher) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithTimeout sets the fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxBodySize caps how many bytes of the page are read. 0 means no cap.
func WithMaxBodySize(n int64) Option {
	return func(s *Searcher) {
		if n >= 0 {
			s.maxBodySize = n
		}
	}
}

// WithCandidates sets the proxy candidates used by Search and SearchAll.
func WithCandidates(candidates []proxy.Candidate) Option {
	return func(s *Searcher) {
		s.candidates = append([]proxy.Candidate(nil), candidates...)
	}
}

// WithSelector sets the proxy selector.
func WithSelector(sel *proxy.Selector) Option {
	return func(s *Searcher) {
		s.selector = sel
	}
}

// WithExtractor sets the result extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(s *Searcher) {
		s.extractor = e
	}
}

// WithMetrics reports activity to m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBatchSize sets how many queries SearchAll runs at once.
func WithBatchSize(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// New creates a Searcher. Without WithSelector it probes proxies with the
// default HTTPProber; without WithExtractor it uses the default selectors
// on the configured base URL.
func New(opts ...Option) (*Searcher, error) {
	s := &Searcher{
		baseURL:     extract.DefaultBaseURL,
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		batchSize:   pipeline.DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.extractor == nil {
		e, err := extract.NewExtractor(extract.WithBaseURL(s.baseURL), extract.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.extractor = e
	}
	s.baseURL = s.extractor.BaseURL()

	if s.selector == nil {
		selOpts := []proxy.SelectorOption{
			proxy.WithLogger(s.logger),
			proxy.WithProber(proxy.NewHTTPProber(proxy.WithProbeUserAgent(s.userAgent))),
		}
		if s.metrics != nil {
			selOpts = append(selOpts, proxy.WithRecorder(s.metrics))
		}
		s.selector = proxy.NewSelector(selOpts...)
	}

	s.pipeline = pipeline.New(pipeline.WithLogger(s.logger))
	s.pipeline.AddSteps(
		NewSelectProxyStep(s.selector),
		NewFetchStep(s.baseURL, s.userAgent, s.timeout, s.maxBodySize, s.metrics, s.logger),
		NewExtractStep(s.extractor),
	)
	return s, nil
}

// BaseURL returns the site searched.
func (s *Searcher) BaseURL() string {
	return s.baseURL
}

// Candidates returns the configured proxy candidates.
func (s *Searcher) Candidates() []proxy.Candidate {
	return append([]proxy.Candidate(nil), s.candidates...)
}

// Search runs one search with the configured candidates.
// The report is always non-nil; check Failed for the outcome.
func (s *Searcher) Search(ctx context.Context, q model.Query) *model.SearchReport {
	return s.search(ctx, q, s.candidates)
}

// SearchWith runs one search with the given candidates instead of the
// configured ones.
func (s *Searcher) SearchWith(ctx context.Context, q model.Query, candidates []proxy.Candidate) *model.SearchReport {
	return s.search(ctx, q, candidates)
}

// FetchSearchResults searches keywords of searchType through one of
// proxies and returns the results. It returns an empty list when the page
// cannot be fetched.
func (s *Searcher) FetchSearchResults(ctx context.Context, keywords []string, proxies []proxy.Candidate, searchType string) []model.SearchResult {
	return s.search(ctx, model.NewQuery(keywords, searchType), proxies).Results
}

func (s *Searcher) search(ctx context.Context, q model.Query, candidates []proxy.Candidate) *model.SearchReport {
	run := pipeline.NewRun(q, candidates)
	_ = s.pipeline.Execute(ctx, run) //nolint:errcheck // recorded in the report
	s.metrics.SearchCompleted(len(run.Report.Results))
	return run.Report
}

// SearchAll runs independent searches for every query, BatchSize at a time,
// and returns the reports in query order.
func (s *Searcher) SearchAll(ctx context.Context, queries []model.Query) ([]*model.SearchReport, error) {
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline { return s.pipeline },
		pipeline.WithConcurrency(s.batchSize),
		pipeline.WithBatchLogger(s.logger),
		pipeline.WithRunFactory(func(q model.Query) *pipeline.Run {
			return pipeline.NewRun(q, s.candidates)
		}),
	)
	reports := make([]*model.SearchReport, len(queries))
	err := bp.ProcessBatchWithCallback(ctx, queries, func(r *model.SearchReport, i int) {
		s.metrics.SearchCompleted(len(r.Results))
		reports[i] = r
	})
	return reports, err
}

var (
	defaultSearcher     *Searcher
	defaultSearcherOnce sync.Once
)

// FetchSearchResults searches with a default Searcher. See
// Searcher.FetchSearchResults.
func FetchSearchResults(ctx context.Context, keywords []string, proxies []proxy.Candidate, searchType string) []model.SearchResult {
	defaultSearcherOnce.Do(func() {
		s, err := New()
		if err != nil {
			// Defaults always build.
			panic(err)
		}
		defaultSearcher = s
	})
	return defaultSearcher.FetchSearchResults(ctx, keywords, proxies, searchType)
}
