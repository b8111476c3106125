package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/observability"
)

// knownEndpoints labels requests that bypass chi routing (404/405 paths,
// tests). Everything else is "/unknown" to bound label cardinality.
var knownEndpoints = map[string]string{
	"/":               "/",
	"/health":         "/health/*",
	"/health/live":    "/health/*",
	"/health/ready":   "/health/*",
	"/health/startup": "/health/*",
	"/version":        "/version",
	"/metrics":        "/metrics",
	"/api/numerology": "/api/numerology",
	"/api/astral-map": "/api/astral-map",
}

// statusRecorder remembers the status code and body size written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.size += int64(n)
	return n, err
}

func endpointLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if label, ok := knownEndpoints[r.URL.Path]; ok {
		return label
	}
	return "/unknown"
}

// requestObservation is one finished request.
type requestObservation struct {
	method   string
	path     string
	endpoint string
	status   int
	duration time.Duration
	reqSize  int64
	respSize int64
}

// RequestMetrics emits http_requests_total, http_request_duration_ms,
// request/response size gauges and http_errors_total, then logs the request.
// It is a no-op when telemetry is not initialized.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		obs := requestObservation{
			method:   r.Method,
			path:     r.URL.Path,
			endpoint: endpointLabel(r),
			status:   rec.status,
			duration: time.Since(start),
			respSize: rec.size,
		}
		if n, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64); err == nil {
			obs.reqSize = n
		}

		obs.emit()
		obs.log(GetRequestID(r.Context()))
	})
}

func (o requestObservation) emit() {
	tel := observability.TelemetrySystem
	status := strconv.Itoa(o.status)
	labels := map[string]string{"method": o.method, "endpoint": o.endpoint, "status": status}
	sizeLabels := map[string]string{"method": o.method, "endpoint": o.endpoint}

	_ = tel.Counter("http_requests_total", 1, labels)
	_ = tel.Histogram("http_request_duration_ms", o.duration, labels)
	_ = tel.Gauge("http_request_size_bytes", float64(o.reqSize), sizeLabels)
	_ = tel.Gauge("http_response_size_bytes", float64(o.respSize), sizeLabels)

	if o.status < 400 {
		return
	}
	errorType := "client_error"
	if o.status >= 500 {
		errorType = "server_error"
	}
	_ = tel.Counter("http_errors_total", 1, map[string]string{
		"method":     o.method,
		"endpoint":   o.endpoint,
		"status":     status,
		"error_type": errorType,
	})
}

// log keeps the request ID out of metric labels.
func (o requestObservation) log(requestID string) {
	if observability.ServerLogger == nil {
		return
	}
	observability.ServerLogger.Info("HTTP request completed",
		zap.String("method", o.method),
		zap.String("path", o.path),
		zap.String("endpoint", o.endpoint),
		zap.Int("status", o.status),
		zap.Duration("duration", o.duration),
		zap.Int64("request_size", o.reqSize),
		zap.Int64("response_size", o.respSize),
		zap.String("requestID", requestID),
	)
}
