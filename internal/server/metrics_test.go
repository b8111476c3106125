package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralmap/astralmap/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// fakeExporter installs an exporter and routes proxy calls to upstream.
func fakeExporter(t *testing.T, upstream roundTripFunc) {
	t.Helper()
	client, port, exporter := metricsProxyClient, configuredMetricsPort, observability.PrometheusExporter
	t.Cleanup(func() {
		metricsProxyClient, configuredMetricsPort, observability.PrometheusExporter = client, port, exporter
	})

	metricsProxyClient = &http.Client{Transport: upstream}
	observability.PrometheusExporter = exporters.NewPrometheusExporter("astralmap_test", ":0")
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func TestMetricsHandlerProxiesExporter(t *testing.T) {
	var seen *http.Request
	fakeExporter(t, func(req *http.Request) (*http.Response, error) {
		seen = req
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("astralmap_derivations_total{result=\"success\"} 3\n")),
		}
		resp.Header.Set("Content-Type", "text/plain; version=0.0.4")
		resp.Header.Set("Connection", "close")
		return resp, nil
	})
	SetMetricsPort(9191)
	SetMetricsPort(-1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	MetricsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Empty(t, rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "astralmap_derivations_total")
	assert.Equal(t, "127.0.0.1:9191", seen.URL.Host)
	assert.Equal(t, "text/plain", seen.Header.Get("Accept"))
}

func TestMetricsHandlerErrors(t *testing.T) {
	observability.PrometheusExporter = nil
	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(t, rec))

	fakeExporter(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	rec = httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", errorCode(t, rec))
}
