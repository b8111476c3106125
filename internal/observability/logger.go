package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

// CLILogger serves commands (SIMPLE profile); ServerLogger serves 'serve'
// (STRUCTURED profile, JSON on stderr).
var (
	CLILogger    *logging.Logger
	ServerLogger *logging.Logger
)

func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatalBeforeLogger("initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

func InitServerLogger(serviceName, logLevel, environment string) {
	logger, err := logging.New(ServerLoggerConfig(serviceName, logLevel, environment))
	if err != nil {
		fatalBeforeLogger("initialize server logger", err)
	}
	ServerLogger = logger
}

// ServerLoggerConfig describes the server logger. An empty environment means
// production.
func ServerLoggerConfig(serviceName, logLevel, environment string) *logging.LoggerConfig {
	env := strings.TrimSpace(environment)
	if env == "" {
		env = "production"
	}
	cfg := &logging.LoggerConfig{
		Profile:          logging.ProfileStructured,
		DefaultLevel:     ParseLogLevel(logLevel),
		Service:          serviceName,
		Environment:      env,
		StaticFields:     map[string]any{"component": "server"},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
	// Stamps request and correlation IDs carried on the context.
	cfg.Middleware = append(cfg.Middleware, logging.MiddlewareConfig{
		Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{},
	})
	cfg.Sinks = append(cfg.Sinks, logging.SinkConfig{
		Type:    "console",
		Format:  "json",
		Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
	})
	return cfg
}

// ParseLogLevel maps a config level to the gofulmen severity name. Unknown
// values become INFO.
func ParseLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	}
	return "INFO"
}

func fatalBeforeLogger(action string, err error) {
	code := int(foundry.ExitConfigInvalid)
	fmt.Fprintf(os.Stderr, "FATAL: failed to %s: %v\n", action, err)
	if info, ok := foundry.GetExitCodeInfo(foundry.ExitConfigInvalid); ok {
		code = info.Code
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s)\n", info.Code, info.Name)
	}
	os.Exit(code)
}
