package server

import (
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adfharrison1/go-tours/pkg/admin"
	"github.com/adfharrison1/go-tours/pkg/site"
	"github.com/adfharrison1/go-tours/pkg/storage"
)

// Version is reported by the build info gauge; set with -ldflags
var Version = "dev"

// Metrics holds the server's Prometheus collectors on an isolated
// registry, so every Server (and every test) gets its own.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal          *prometheus.CounterVec
	RequestDurationSeconds *prometheus.HistogramVec
	PanicsTotal            prometheus.Counter
}

// NewMetrics registers the HTTP collectors plus gauges read from the
// storage engine, the page cache and the admin session store
func NewMetrics(engine *storage.StorageEngine, pages *site.PageCache, sessions *admin.SessionStore) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gotours_http_requests_total",
				Help: "Total HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gotours_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gotours_http_panics_total",
			Help: "Handler panics recovered by the server.",
		}),
	}

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gotours_info",
			Help: "Build information for the running instance.",
		},
		[]string{"version", "go_version"},
	)
	buildInfo.WithLabelValues(Version, runtime.Version()).Set(1)

	reg.MustRegister(m.RequestsTotal, m.RequestDurationSeconds, m.PanicsTotal, buildInfo)

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gotours_documents",
			Help: "Documents held by the store.",
		}, func() float64 {
			var total int64
			for _, name := range engine.Collections() {
				if info, err := engine.CollectionInfo(name); err == nil {
					total += info.DocumentCount
				}
			}
			return float64(total)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gotours_store_lsn",
			Help: "Sequence number of the latest write.",
		}, func() float64 {
			return float64(engine.LSN())
		}),
	)

	if pages != nil {
		reg.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "gotours_page_cache_hits_total",
				Help: "Public pages served from the page cache.",
			}, func() float64 {
				hits, _ := pages.Stats()
				return float64(hits)
			}),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "gotours_page_cache_misses_total",
				Help: "Public pages rendered because they were not cached.",
			}, func() float64 {
				_, misses := pages.Stats()
				return float64(misses)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "gotours_page_cache_entries",
				Help: "Rendered pages currently cached.",
			}, func() float64 {
				return float64(pages.Len())
			}),
		)
	}
	if sessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gotours_admin_sessions",
			Help: "Live admin sessions.",
		}, func() float64 {
			return float64(sessions.Len())
		}))
	}
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
