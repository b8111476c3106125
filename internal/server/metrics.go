package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/observability"
)

var metricsProxyClient = &http.Client{Timeout: 5 * time.Second}

// configuredMetricsPort is used until the exporter reports the port it bound.
var configuredMetricsPort = 9090

// hopHeaders are not copied from the exporter response.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// SetMetricsPort records the exporter port from config. Non-positive values
// are ignored.
func SetMetricsPort(port int) {
	if port > 0 {
		configuredMetricsPort = port
	}
}

func metricsURL() string {
	port := observability.GetMetricsPort()
	if port == 0 {
		port = configuredMetricsPort
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

// MetricsHandler serves GET /metrics by proxying the Prometheus exporter,
// which listens on its own port.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		HandleError(w, r, errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "Metrics exporter not initialized"))
		return
	}

	target := metricsURL()
	fail := func(code, message string, cause error) {
		env, _ := errors.NewErrorEnvelope(code, message).WithContext(map[string]interface{}{
			"metrics_url":    target,
			"original_error": cause.Error(),
		})
		HandleError(w, r, env)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		fail("INTERNAL_ERROR", "Unable to construct metrics request", err)
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		fail("EXTERNAL_SERVICE_ERROR", "Prometheus exporter unavailable", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for key, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write metrics response", zap.Error(err))
	}
}
