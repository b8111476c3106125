package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/require"

	"github.com/astralmap/astralmap/internal/observability"
)

func withCollector(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })
	return collector
}

func TestDomainMetrics(t *testing.T) {
	collector := withCollector(t)

	RecordDerivation(true)
	RecordDerivation(false)
	RecordReport(true, 1500*time.Millisecond)
	RecordAICall("text", "gemini-main", true, time.Second)
	RecordAICall("image", "", false, time.Second)

	require.Greater(t, collector.CountMetricsByName(DerivationsTotal), 0)
	require.Greater(t, collector.CountMetricsByName(ReportsTotal), 0)
	require.Greater(t, collector.CountMetricsByName(ReportDuration), 0)
	require.Greater(t, collector.CountMetricsByName(AICallsTotal), 0)
	require.Greater(t, collector.CountMetricsByName(AICallDuration), 0)
}

func TestErrorMetrics(t *testing.T) {
	collector := withCollector(t)

	RecordError("VALIDATION_FAILED", 400)
	RecordErrorByEndpoint("/api/numerology", "VALIDATION_FAILED")
	RecordPanic()

	require.Greater(t, collector.CountMetricsByName(ErrorsTotalName), 0)
	require.Greater(t, collector.CountMetricsByName(ErrorsByEndpointName), 0)
	require.Greater(t, collector.CountMetricsByName(PanicsTotalName), 0)
}

func TestMetricsNoopWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	RecordDerivation(true)
	RecordReport(false, 0)
	RecordAICall("text", "x", true, 0)
	RecordHealthCheck("prompts", true, 0)
	SetServerStartTime(time.Now().Unix())
}
