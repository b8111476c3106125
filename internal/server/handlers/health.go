package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/astralmap/astralmap/internal/metrics"
)

// Check and aggregate states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live, ready and startup probes.
type ProbeResponse struct {
	Probe     string    `json:"probe"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is a dependency the service needs to answer requests: the
// report prompt, the AI provider wiring, telemetry.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// probe describes one endpoint. Liveness never runs dependency checks: a
// missing API key must not get the process restarted.
type probe struct {
	name      string
	timeout   time.Duration
	runChecks bool
}

var (
	aggregateProbe = probe{name: "aggregate", timeout: 5 * time.Second, runChecks: true}
	liveProbe      = probe{name: "live"}
	readyProbe     = probe{name: "ready", timeout: 5 * time.Second, runChecks: true}
	startupProbe   = probe{name: "startup", timeout: 3 * time.Second, runChecks: true}
)

type HealthManager struct {
	checkers map[string]HealthChecker
	version  string
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{checkers: make(map[string]HealthChecker), version: version}
}

// RegisterChecker adds or replaces the checker called name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.checkers[name] = checker
}

// evaluate runs every checker in name order and folds the results. Once ctx
// is done the remaining checks are reported as timeouts.
func (hm *HealthManager) evaluate(ctx context.Context) (string, map[string]string) {
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = StatusTimeout
			metrics.RecordHealthCheck(name, false, 0)
			continue
		}
		start := time.Now()
		err := hm.checkers[name].CheckHealth(ctx)
		metrics.RecordHealthCheck(name, err == nil, time.Since(start))
		checks[name] = StatusHealthy
		if err != nil {
			checks[name] = StatusUnhealthy
		}
	}
	return overallStatus(checks), checks
}

// overallStatus: any unhealthy check wins, then degraded or timed out.
func overallStatus(checks map[string]string) string {
	status := StatusHealthy
	for _, result := range checks {
		switch result {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, checks, ok := hm.run(w, r, aggregateProbe)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, liveProbe)
}

func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, readyProbe)
}

func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, startupProbe)
}

func (hm *HealthManager) serveProbe(w http.ResponseWriter, r *http.Request, p probe) {
	status, _, ok := hm.run(w, r, p)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ProbeResponse{Probe: p.name, Status: status, Timestamp: time.Now().UTC()})
}

// run evaluates p and, when the result is unhealthy, writes the 503 envelope
// and reports ok=false.
func (hm *HealthManager) run(w http.ResponseWriter, r *http.Request, p probe) (string, map[string]string, bool) {
	if !p.runChecks {
		return StatusHealthy, nil, true
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	status, checks := hm.evaluate(ctx)
	if status != StatusUnhealthy {
		return status, checks, true
	}

	message := p.name + " probe failed"
	if p == aggregateProbe {
		message = "aggregate health check failed"
	}
	respondWithError(w, r, healthEnvelope(message, p.name, status, checks))
	return status, checks, false
}

func healthEnvelope(message, probeName, status string, checks map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status, "probe": probeName}
	if len(checks) > 0 {
		details["checks"] = checks
	}

	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)

	env := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", message).WithDetails(details)
	if len(failing) > 0 {
		if withFailing, err := env.WithContext(map[string]interface{}{"unhealthy_checks": failing}); err == nil {
			env = withFailing
		}
	}
	return env
}

var globalHealthManager *HealthManager

// InitHealthManager replaces the manager behind the package-level handlers.
func InitHealthManager(version string) *HealthManager {
	globalHealthManager = NewHealthManager(version)
	return globalHealthManager
}

func withGlobal(probeName string, serve func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hm := globalHealthManager; hm != nil {
			serve(hm, w, r)
			return
		}
		respondWithError(w, r, healthEnvelope("health manager not initialized", probeName, "unknown", nil))
	}
}

// Handlers bound to the global manager.
var (
	HealthHandler    = withGlobal(aggregateProbe.name, (*HealthManager).HealthHandler)
	LivenessHandler  = withGlobal(liveProbe.name, (*HealthManager).LivenessHandler)
	ReadinessHandler = withGlobal(readyProbe.name, (*HealthManager).ReadinessHandler)
	StartupHandler   = withGlobal(startupProbe.name, (*HealthManager).StartupHandler)
)
