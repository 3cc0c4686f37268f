// Package metrics provides Prometheus instrumentation for the matching service.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersReceived counts orders handed to the engine, by order type.
	OrdersReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_orders_received_total",
		Help: "Total number of orders processed by the matching engine",
	}, []string{"type"})

	// MatchLatency tracks time spent matching one order, by order type.
	MatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matching_match_latency_seconds",
		Help:    "Order matching latency in seconds",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"type"})

	// TradesExecuted counts trade executions per company.
	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_trades_total",
		Help: "Total number of trade executions",
	}, []string{"company"})

	// MatchedVolume tracks cumulative matched quantity per company.
	MatchedVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_volume_total",
		Help: "Cumulative matched quantity in shares",
	}, []string{"company"})

	// ActiveBooks tracks the number of company order books in memory.
	ActiveBooks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matching_active_books",
		Help: "Number of company order books held by the engine",
	})

	// PublishFailures counts trade executions a sink failed to accept.
	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_publish_failures_total",
		Help: "Trade executions dropped or rejected by a publisher",
	}, []string{"sink"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matching_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matching_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps company codes and account IDs out of the labels.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
