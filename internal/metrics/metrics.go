// Package metrics exposes reader counters on a dedicated prometheus registry.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/internal/paging"
	"github.com/samvad-hq/samvad-news-reader/pkg/newsapi"
)

const (
	EndpointArticles = "everything"
	EndpointSources  = "sources"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	retriesTotal   prometheus.Counter
	sessionsActive prometheus.Gauge
}

// New registers the reader collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reader_fetch_total",
			Help: "Remote fetches by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reader_fetch_duration_seconds",
			Help:    "Latency of remote fetches.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reader_retries_total",
			Help: "Retries that re-issued at least one request.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reader_sessions_active",
			Help: "Open reader sessions.",
		}),
	}
	m.registry.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.retriesTotal,
		m.sessionsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveFetch records one remote call that started at begin.
func (m *Metrics) ObserveFetch(endpoint string, begin time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.fetchTotal.WithLabelValues(endpoint, outcome).Inc()
	m.fetchDuration.WithLabelValues(endpoint).Observe(time.Since(begin).Seconds())
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessionsActive.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessionsActive.Dec()
	}
}

func (m *Metrics) Retried() {
	if m != nil {
		m.retriesTotal.Inc()
	}
}

// InstrumentFetcher wraps f so every page fetch is counted and timed.
func (m *Metrics) InstrumentFetcher(f paging.Fetcher) paging.Fetcher {
	if m == nil {
		return f
	}
	return paging.FetcherFunc(func(ctx context.Context, sourceID string, page, pageSize int) (domain.ArticlesPage, error) {
		begin := time.Now()
		res, err := f.FetchArticles(ctx, sourceID, page, pageSize)
		m.ObserveFetch(EndpointArticles, begin, err)
		return res, err
	})
}

// SourceLister is the source listing call of the remote API.
type SourceLister interface {
	FetchSources(ctx context.Context, country newsapi.Country, category newsapi.Category) (domain.SourcesPage, error)
}

type sourceListerFunc func(ctx context.Context, country newsapi.Country, category newsapi.Category) (domain.SourcesPage, error)

func (f sourceListerFunc) FetchSources(ctx context.Context, country newsapi.Country, category newsapi.Category) (domain.SourcesPage, error) {
	return f(ctx, country, category)
}

func (m *Metrics) InstrumentSources(s SourceLister) SourceLister {
	if m == nil {
		return s
	}
	return sourceListerFunc(func(ctx context.Context, country newsapi.Country, category newsapi.Category) (domain.SourcesPage, error) {
		begin := time.Now()
		res, err := s.FetchSources(ctx, country, category)
		m.ObserveFetch(EndpointSources, begin, err)
		return res, err
	})
}
