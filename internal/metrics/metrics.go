// Package metrics exposes search and proxy activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reposcout"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector holds the metrics of one process. A nil *Collector is valid
// and records nothing.
type Collector struct {
	registry *prometheus.Registry

	probes        *prometheus.CounterVec
	selections    *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	results       prometheus.Counter
	searches      prometheus.Counter
	fetchDuration prometheus.Histogram
}

// New creates a Collector registered on its own registry, together with
// the Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_probes_total",
			Help:      "The total number of proxy probes by outcome",
		}, []string{"outcome"}),
		selections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_selections_total",
			Help:      "The total number of proxy selections by outcome",
		}, []string{"outcome"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "The total number of search page fetches by outcome",
		}, []string{"outcome"}),
		results: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_extracted_total",
			Help:      "The total number of search results extracted",
		}),
		searches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "The total number of searches performed",
		}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of search page fetches",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8), // 0.1s to 12.8s
		}),
	}
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// ProbeCompleted counts one proxy probe.
func (c *Collector) ProbeCompleted(ok bool) {
	if c == nil {
		return
	}
	c.probes.WithLabelValues(outcome(ok)).Inc()
}

// SelectionCompleted counts one proxy selection.
func (c *Collector) SelectionCompleted(ok bool) {
	if c == nil {
		return
	}
	c.selections.WithLabelValues(outcome(ok)).Inc()
}

// FetchCompleted counts one fetch of a search page and its duration.
func (c *Collector) FetchCompleted(ok bool, d time.Duration) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(outcome(ok)).Inc()
	c.fetchDuration.Observe(d.Seconds())
}

// SearchCompleted counts one search and the results it produced.
func (c *Collector) SearchCompleted(results int) {
	if c == nil {
		return
	}
	c.searches.Inc()
	c.results.Add(float64(results))
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
