package search

import (
	"log/slog"

	"github.com/nao1215/reposcout/internal/config"
	"github.com/nao1215/reposcout/internal/extract"
	"github.com/nao1215/reposcout/internal/metrics"
	"github.com/nao1215/reposcout/internal/proxy"
)

// NewFromConfig builds a Searcher from cfg. extra candidates, such as an
// embedded Tor proxy, are appended to those named in cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, m *metrics.Collector, extra ...proxy.Candidate) (*Searcher, error) {
	candidates, err := cfg.Candidates()
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, extra...)

	extractor, err := extract.NewExtractor(
		extract.WithBaseURL(cfg.BaseURL),
		extract.WithSelectors(cfg.Selectors),
		extract.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	selOpts := []proxy.SelectorOption{
		proxy.WithLogger(logger),
		proxy.WithProber(proxy.NewHTTPProber(
			proxy.WithProbeURL(cfg.ProbeURL),
			proxy.WithProbeTimeout(cfg.ProbeTimeout),
			proxy.WithProbeUserAgent(cfg.UserAgent),
		)),
	}
	if cfg.WithoutReplacement {
		selOpts = append(selOpts, proxy.WithoutReplacement())
	}
	if m != nil {
		selOpts = append(selOpts, proxy.WithRecorder(m))
	}

	return New(
		WithExtractor(extractor),
		WithSelector(proxy.NewSelector(selOpts...)),
		WithUserAgent(cfg.UserAgent),
		WithTimeout(cfg.Timeout),
		WithMaxBodySize(cfg.MaxBodySize),
		WithCandidates(candidates),
		WithBatchSize(cfg.BatchSize),
		WithMetrics(m),
		WithLogger(logger),
	)
}
