package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/reposcout/internal/extract"
	"github.com/nao1215/reposcout/internal/metrics"
	"github.com/nao1215/reposcout/internal/pipeline"
	"github.com/nao1215/reposcout/internal/proxy"
)

// Step names, recorded in SearchReport.PerformedSteps.
const (
	StepSelectProxy = "select_proxy"
	StepFetch       = "fetch"
	StepExtract     = "extract"
)

// maxRedirects bounds redirects followed while fetching the search page.
const maxRedirects = 10

// SelectProxyStep picks the proxy for the fetch. It never fails: an
// unusable pool leaves the Run on a direct connection.
type SelectProxyStep struct {
	selector *proxy.Selector
}

// NewSelectProxyStep creates the proxy selection step.
func NewSelectProxyStep(selector *proxy.Selector) *SelectProxyStep {
	return &SelectProxyStep{selector: selector}
}

// Name implements pipeline.Step.
func (s *SelectProxyStep) Name() string {
	return StepSelectProxy
}

// Do implements pipeline.Step.
func (s *SelectProxyStep) Do(ctx context.Context, run *pipeline.Run) error {
	sel, _ := s.selector.Choose(ctx, run.Candidates) //nolint:errcheck // no usable proxy means direct
	run.Proxy = sel.Config
	run.Report.Proxy = sel.Config.Redacted()
	run.Report.ProbeAttempts = sel.Attempts
	return nil
}

// FetchStep downloads the search page once through the selected proxy.
type FetchStep struct {
	baseURL     string
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	metrics     *metrics.Collector
	logger      *slog.Logger
}

// NewFetchStep creates the fetch step.
func NewFetchStep(baseURL, userAgent string, timeout time.Duration, maxBodySize int64, m *metrics.Collector, logger *slog.Logger) *FetchStep {
	return &FetchStep{
		baseURL:     baseURL,
		userAgent:   userAgent,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		metrics:     m,
		logger:      logger,
	}
}

// Name implements pipeline.Step.
func (s *FetchStep) Name() string {
	return StepFetch
}

// Do implements pipeline.Step. Any network failure or non-2xx status
// returns an error wrapping ErrFetchFailed.
func (s *FetchStep) Do(ctx context.Context, run *pipeline.Run) error {
	target := BuildSearchURL(s.baseURL, run.Query)
	run.Report.SearchURL = target

	start := time.Now()
	page, status, err := s.fetch(ctx, run.Proxy, target)
	run.Report.StatusCode = status
	s.metrics.FetchCompleted(err == nil, time.Since(start))
	if err != nil {
		return err
	}

	s.logger.Debug("fetched search page",
		"url", target,
		"status", status,
		"bytes", len(page),
		"proxy", run.Report.Proxy,
	)
	run.Page = page
	return nil
}

func (s *FetchStep) fetch(ctx context.Context, cfg proxy.Config, target string) ([]byte, int, error) {
	transport, err := cfg.Transport(s.timeout)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   s.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, URL: target}
	}

	var body io.Reader = resp.Body
	if s.maxBodySize > 0 {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
		if err != nil {
			return nil, resp.StatusCode, fmt.Errorf("%w: reading body: %w", ErrFetchFailed, err)
		}
		if int64(len(raw)) > s.maxBodySize {
			s.logger.Warn("search page truncated", "url", target, "limit", s.maxBodySize)
			raw = raw[:s.maxBodySize]
		}
		body = bytes.NewReader(raw)
	}
	utf8Body, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	page, err := io.ReadAll(utf8Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: reading body: %w", ErrFetchFailed, err)
	}
	return page, resp.StatusCode, nil
}

// ExtractStep turns the fetched page into results.
type ExtractStep struct {
	extractor *extract.Extractor
}

// NewExtractStep creates the extraction step.
func NewExtractStep(extractor *extract.Extractor) *ExtractStep {
	return &ExtractStep{extractor: extractor}
}

// Name implements pipeline.Step.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do implements pipeline.Step.
func (s *ExtractStep) Do(_ context.Context, run *pipeline.Run) error {
	results := s.extractor.ExtractReader(bytes.NewReader(run.Page))
	run.Report.SetResults(results)
	return nil
}
