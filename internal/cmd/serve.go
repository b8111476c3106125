package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/ailink/prompt"
	"github.com/astralmap/astralmap/internal/appid"
	"github.com/astralmap/astralmap/internal/config"
	apperrors "github.com/astralmap/astralmap/internal/errors"
	"github.com/astralmap/astralmap/internal/metrics"
	"github.com/astralmap/astralmap/internal/observability"
	"github.com/astralmap/astralmap/internal/server"
	"github.com/astralmap/astralmap/internal/server/handlers"
)

const defaultShutdownTimeout = 10 * time.Second

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API (POST /api/numerology, POST /api/astral-map) with
health, version and metrics endpoints.

Signals:
  SIGINT/SIGTERM   graceful shutdown (Ctrl+C twice within 2s forces quit)
  SIGHUP           validate config and prompts; restart to apply`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host (overrides server.host)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port (overrides server.port)")
}

// serverOverrides maps explicitly set flags onto the server config section.
func serverOverrides(cmd *cobra.Command) map[string]any {
	section := map[string]any{}
	if cmd.Flags().Changed("host") {
		section["host"] = serverHost
	}
	if cmd.Flags().Changed("port") {
		section["port"] = serverPort
	}
	return map[string]any{"server": section}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	identity := GetAppIdentity()
	_, binaryName, envPrefix := appid.Names(identity)

	cfg, err := config.Load(ctx, serverOverrides(cmd))
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "configuration invalid")
	}
	observability.InitServerLogger(binaryName, cfg.Logging.Level, os.Getenv(envPrefix+"ENV"))
	log := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(binaryName, cfg.Metrics.Port, identity.TelemetryNamespace()); err != nil {
			log.Error("Failed to initialize metrics", zap.Error(err))
			return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "metrics initialization failed")
		}
		server.SetMetricsPort(cfg.Metrics.Port)
	}
	metrics.SetServerStartTime(time.Now().Unix())

	service, registry, err := buildService(cfg)
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "prompt registry invalid")
	}

	log.Info("Initializing server",
		zap.String("service", binaryName),
		zap.String("version", versionInfo.Version),
		zap.String("addr", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.String("prompt", cfg.Report.PromptSlug))

	registerHealthChecks(cfg, registry, identity)
	handlers.SetAppIdentity(identity)
	srv := server.New(cfg.Server, &handlers.API{Engine: buildOrchestrator(cfg, service)})
	installSignalHandlers(srv, cfg.Server.ShutdownTimeout)

	errc := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", srv.Addr()))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go func() {
		if err := signals.Listen(ctx); err != nil {
			log.Error("Signal handler error", zap.Error(err))
			errc <- err
		}
	}()

	if err := <-errc; err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server error")
	}
	return nil
}

func registerHealthChecks(cfg *config.Config, registry prompt.Registry, identity *appidentity.Identity) {
	hm := handlers.InitHealthManager(versionInfo.Version)
	hm.RegisterChecker("prompts", promptHealthChecker{registry: registry, slug: cfg.Report.PromptSlug})
	hm.RegisterChecker("ai", providerHealthChecker{cfg: cfg.AILink, registry: registry, report: cfg.Report})
	hm.RegisterChecker("app_identity", identityHealthChecker{
		binaryName: identity.BinaryName,
		envPrefix:  identity.EnvPrefix,
		configName: identity.ConfigName,
	})
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
}

// installSignalHandlers wires graceful shutdown, SIGHUP validation and the
// double Ctrl+C force quit. Shutdown hooks run LIFO so the server stops
// before the logger is flushed.
func installSignalHandlers(srv *server.Server, timeout time.Duration) {
	log := observability.ServerLogger
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	signals.OnShutdown(func(context.Context) error {
		// stderr may already be closed
		if err := log.Sync(); err != nil {
			log.Warn("Logger sync failed", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server shutdown failed")
		}
		log.Info("HTTP server stopped")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		if err := validateConfigFile(ctx); err != nil {
			log.Error("Config reload rejected", zap.Error(err))
			return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "config reload failed")
		}
		log.Info("SIGHUP: configuration valid, restart to apply",
			zap.String("config_file", config.DefaultConfigPath()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		log.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}
}
