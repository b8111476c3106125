package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

var (
	// TelemetrySystem receives every counter, gauge and histogram. It is nil
	// until InitMetrics succeeds, and emitters treat nil as disabled.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the scrape endpoint on its own port.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// defaultMetricsPort is reported when a random port was requested and the
// bound address cannot be parsed.
const defaultMetricsPort = 9090

// InitMetrics starts a Prometheus exporter on port (0 picks a free one) and
// installs the telemetry system that feeds it. Metric names are prefixed
// with namespace, or serviceName when namespace is omitted.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	port = max(port, 0)
	prefix := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}

	exporter := exporters.NewPrometheusExporter(prefix, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		return fmt.Errorf("create telemetry system: %w", err)
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	metricsPort = boundPort(exporter.GetAddr(), port)
	return nil
}

// GetMetricsPort returns the port the exporter is listening on, or 0 before
// InitMetrics.
func GetMetricsPort() int {
	return metricsPort
}

func boundPort(addr string, requested int) int {
	if _, raw, err := net.SplitHostPort(addr); err == nil {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			return port
		}
	}
	if requested == 0 {
		return defaultMetricsPort
	}
	return requested
}
