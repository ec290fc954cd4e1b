package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the findmyusers collectors on an isolated registry, so tests
// can create as many instances as they like.
type Metrics struct {
	Registry *prometheus.Registry

	// Regeneration
	RegenerationsTotal  *prometheus.CounterVec
	RegenerationSeconds *prometheus.HistogramVec
	EntriesSkippedTotal *prometheus.CounterVec
	EntriesAddedTotal   *prometheus.CounterVec
	OrphansTotal        *prometheus.CounterVec
	CatalogEntries      *prometheus.GaugeVec

	// Read side
	ReloadsTotal       *prometheus.CounterVec
	CacheRequestsTotal *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RegenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findmyusers_regenerations_total",
				Help: "Catalog regeneration runs by result.",
			},
			[]string{"catalog", "result"},
		),
		RegenerationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "findmyusers_regeneration_duration_seconds",
				Help:    "Duration of catalog regeneration runs.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"catalog"},
		),
		EntriesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findmyusers_entries_skipped_total",
				Help: "Entries dropped by the validator during regeneration.",
			},
			[]string{"catalog"},
		),
		EntriesAddedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findmyusers_entries_added_total",
				Help: "New slugs discovered during regeneration.",
			},
			[]string{"catalog"},
		),
		OrphansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findmyusers_orphans_total",
				Help: "List entries without any detail file.",
			},
			[]string{"catalog"},
		),
		CatalogEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "findmyusers_catalog_entries",
				Help: "Entries in the catalog after the last regeneration or reload.",
			},
			[]string{"catalog", "locale"},
		),

		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findmyusers_reloads_total",
				Help: "Read-side reloads by result (rebuilt, unchanged, error).",
			},
			[]string{"result"},
		),
		CacheRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findmyusers_cache_requests_total",
				Help: "Cache lookups by result (hit, miss).",
			},
			[]string{"cache", "result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findmyusers_http_requests_total",
				Help: "API requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		HTTPRequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "findmyusers_http_request_duration_seconds",
				Help:    "API request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.RegenerationsTotal,
		m.RegenerationSeconds,
		m.EntriesSkippedTotal,
		m.EntriesAddedTotal,
		m.OrphansTotal,
		m.CatalogEntries,
		m.ReloadsTotal,
		m.CacheRequestsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestSeconds,
	)
	return m
}

// Handler returns an http.Handler serving metrics from the isolated registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
