package server

import (
	"context"
	"net/http"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/appid"
	"github.com/astralmap/astralmap/internal/observability"
	"github.com/astralmap/astralmap/internal/server/handlers"
)

// Operational endpoints mounted on every server.
var opsRoutes = map[string]http.HandlerFunc{
	"/health":         handlers.HealthHandler,
	"/health/live":    handlers.LivenessHandler,
	"/health/ready":   handlers.ReadinessHandler,
	"/health/startup": handlers.StartupHandler,
	"/version":        handlers.VersionHandler,
	"/metrics":        MetricsHandler,
}

const (
	adminSignalPath = "/admin/signal"
	adminRatePerMin = 10
	adminRateBurst  = 5
)

func (s *Server) registerRoutes() {
	for path, h := range opsRoutes {
		s.router.Get(path, h)
	}

	if s.api != nil {
		s.router.Route("/api", func(r chi.Router) {
			if len(s.cfg.CORSOrigins) > 0 {
				r.Use(corsMiddleware(s.cfg.CORSOrigins))
			}
			r.Post("/numerology", s.api.Numerology)
			r.Post("/astral-map", s.api.AstralMap)
		})
	}

	if token := adminToken(); token != "" {
		s.router.Post(adminSignalPath, signals.NewHTTPHandler(signals.HTTPConfig{
			TokenAuth: token,
			RateLimit: adminRatePerMin,
			RateBurst: adminRateBurst,
		}).ServeHTTP)
		if log := observability.ServerLogger; log != nil {
			log.Warn("Admin signal endpoint enabled; keep this server off the public internet",
				zap.String("path", adminSignalPath),
				zap.Int("rate_per_min", adminRatePerMin))
		}
	}
}

// adminToken reads {PREFIX}ADMIN_TOKEN. Empty leaves /admin/signal unmounted.
func adminToken() string {
	identity, _ := appid.Get(context.Background())
	_, _, prefix := appid.Names(identity)
	return os.Getenv(prefix + "ADMIN_TOKEN")
}
