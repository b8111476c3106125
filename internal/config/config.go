package config

import (
	"time"

	"github.com/astralmap/astralmap/internal/ailink"
)

// Config is the merged configuration. Precedence, lowest first: embedded
// defaults.yaml, the user config file, environment variables, runtime
// overrides.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AILink  ailink.Config `mapstructure:"ailink"`
	Report  ReportConfig  `mapstructure:"report"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Browser origins allowed on /api. Empty disables CORS.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ReportConfig names the prompt and the ailink roles used to build an astral
// map, and the requested image shape.
type ReportConfig struct {
	PromptSlug   string `mapstructure:"prompt_slug"`
	TextRole     string `mapstructure:"text_role"`
	ImageRole    string `mapstructure:"image_role"`
	AspectRatio  string `mapstructure:"aspect_ratio"`
	OutputFormat string `mapstructure:"output_format"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`   // trace, debug, info, warn, error
	Profile string `mapstructure:"profile"` // SIMPLE or STRUCTURED
}

// MetricsConfig controls the Prometheus exporter, which listens on its own
// port and is proxied at /metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}
