package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultProbeURL is the echo endpoint probed through each candidate.
	DefaultProbeURL = "http://httpbin.org/ip"

	// DefaultProbeTimeout bounds one probe, connection included.
	DefaultProbeTimeout = 5 * time.Second

	// maxProbeBody caps how much of the echo response is drained so the
	// connection can be reused.
	maxProbeBody = 64 << 10
)

// Prober checks whether a candidate can carry a request.
// Probe returns nil when the candidate works.
type Prober interface {
	Probe(ctx context.Context, c Candidate) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, c Candidate) error

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, c Candidate) error {
	return f(ctx, c)
}

// HTTPProber probes a candidate with a GET to an echo endpoint routed
// through it. Any 2xx status counts as success.
type HTTPProber struct {
	url       string
	timeout   time.Duration
	userAgent string
}

// HTTPProberOption configures an HTTPProber.
type HTTPProberOption func(*HTTPProber)

// WithProbeURL overrides the echo endpoint.
func WithProbeURL(u string) HTTPProberOption {
	return func(p *HTTPProber) {
		if u != "" {
			p.url = u
		}
	}
}

// WithProbeTimeout overrides the per-probe timeout.
func WithProbeTimeout(d time.Duration) HTTPProberOption {
	return func(p *HTTPProber) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithProbeUserAgent sets the User-Agent sent with probes.
func WithProbeUserAgent(ua string) HTTPProberOption {
	return func(p *HTTPProber) {
		p.userAgent = ua
	}
}

// NewHTTPProber creates a prober using DefaultProbeURL and DefaultProbeTimeout
// unless overridden.
func NewHTTPProber(opts ...HTTPProberOption) *HTTPProber {
	p := &HTTPProber{
		url:     DefaultProbeURL,
		timeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the echo endpoint.
func (p *HTTPProber) URL() string {
	return p.url
}

// Timeout returns the per-probe timeout.
func (p *HTTPProber) Timeout() time.Duration {
	return p.timeout
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, c Candidate) error {
	cfg, err := ConfigFor(c)
	if err != nil {
		return err
	}
	transport, err := cfg.Transport(p.timeout)
	if err != nil {
		return err
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   p.timeout,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrProbeFailed, resp.StatusCode)
	}
	return nil
}
