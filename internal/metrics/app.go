package metrics

import (
	"time"

	"github.com/astralmap/astralmap/internal/observability"
)

// Domain metrics following Prometheus conventions.
const (
	DerivationsTotal   = "astralmap_derivations_total"
	ReportsTotal       = "astralmap_reports_total"
	ReportDuration     = "astralmap_report_duration_ms"
	AICallsTotal       = "astralmap_ai_calls_total"
	AICallDuration     = "astralmap_ai_call_duration_ms"
	HealthCheckTotal   = "app_health_check_total"
	HealthCheckLatency = "app_health_check_duration_ms"
	ServerStartTime    = "app_server_start_time_seconds"
)

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordDerivation counts one numerology derivation.
func RecordDerivation(success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(DerivationsTotal, 1, map[string]string{
		"status": status(success),
	})
}

// RecordReport counts one astral map report and its end-to-end latency.
func RecordReport(success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ReportsTotal, 1, map[string]string{
		"status": status(success),
	})
	_ = observability.TelemetrySystem.Histogram(ReportDuration, duration, map[string]string{
		"status": status(success),
	})
}

// RecordAICall records a provider call. kind is "text" or "image".
func RecordAICall(kind, provider string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	if provider == "" {
		provider = "unresolved"
	}
	tags := map[string]string{
		"kind":     kind,
		"provider": provider,
		"status":   status(success),
	}
	_ = observability.TelemetrySystem.Counter(AICallsTotal, 1, tags)
	_ = observability.TelemetrySystem.Histogram(AICallDuration, duration, map[string]string{
		"kind":     kind,
		"provider": provider,
	})
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	state := "healthy"
	if !healthy {
		state = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": state,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckLatency,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
