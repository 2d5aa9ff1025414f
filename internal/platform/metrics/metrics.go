package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics はユーザー管理サービスの Prometheus メトリクスです。
type Metrics struct {
	ListingDegradedTotal prometheus.Counter
	CacheLookupsTotal    *prometheus.CounterVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New はメトリクスを生成し registry に登録します。
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ListingDegradedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "user_admin_listing_degraded_total",
			Help: "Total number of listing queries that degraded to an empty result",
		}),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "user_admin_listing_cache_lookups_total",
				Help: "Listing cache lookups by result",
			},
			[]string{"result"}, // hit / miss
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "user_admin_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "user_admin_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		m.ListingDegradedTotal,
		m.CacheLookupsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ListingDegraded は一覧取得の縮退を記録します。
func (m *Metrics) ListingDegraded() {
	m.ListingDegradedTotal.Inc()
}

// CacheHit はキャッシュヒットを記録します。
func (m *Metrics) CacheHit() {
	m.CacheLookupsTotal.WithLabelValues("hit").Inc()
}

// CacheMiss はキャッシュミスを記録します。
func (m *Metrics) CacheMiss() {
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveHTTP は HTTP リクエスト 1 件を記録します。
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler は /metrics 用のハンドラを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
