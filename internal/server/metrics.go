package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts requests per method, route pattern and status.
type Metrics struct {
	requests *prometheus.CounterVec
	gatherer prometheus.Gatherer
}

// NewMetrics registers the request counter on a fresh registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		gatherer: reg,
	}

	if err := reg.Register(m.requests); err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware counts every request except scrapes of /metrics.
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			sw := wrapWriter(w)
			next.ServeHTTP(sw, r)

			m.requests.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(sw.status)).Inc()
		})
	}
}

// routePattern returns the top-level pattern that matched r, or the raw path for unmatched requests.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.RoutePatterns) > 0 {
		return rctx.RoutePatterns[0]
	}
	return r.URL.Path
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Counter returns the request counter, for tests and custom collectors.
func (m *Metrics) Counter() *prometheus.CounterVec {
	return m.requests
}
