// Package config provides centralized configuration management for astralmap.
// It layers embedded defaults, the user config file and environment
// variables with viper, then decodes the merged tree with mapstructure.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/astralmap/astralmap/internal/appid"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	mu         sync.RWMutex
	current    *Config
	identity   *appidentity.Identity
	pinnedFile string
)

// EnvVarSpec maps a {PREFIX}{NAME} variable onto a config path.
type EnvVarSpec = gfconfig.EnvVarSpec

const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetConfigFile pins the user config layer to path. An empty path restores
// XDG discovery.
func SetConfigFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	pinnedFile = strings.TrimSpace(path)
}

// Load merges, in increasing precedence: the embedded defaults, the user
// config file, environment variables, then each runtime override map.
// It may be called again to reload.
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if err := ensureIdentity(ctx); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultsYAML)); err != nil {
		return nil, fmt.Errorf("read embedded defaults: %w", err)
	}

	userFile, err := userConfigFile()
	if err != nil {
		return nil, err
	}
	if userFile != "" {
		v.SetConfigFile(userFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", userFile, err)
		}
	}

	env, err := envLayer()
	if err != nil {
		return nil, err
	}
	mergeCredentials(env, func(id string) []any {
		return credentialList(v.Get("ailink.providers." + id + ".credentials"))
	})
	for _, layer := range append([]map[string]any{env}, runtimeOverrides...) {
		if len(layer) == 0 {
			continue
		}
		if err := v.MergeConfigMap(layer); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
	}

	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	mu.Lock()
	current = cfg
	mu.Unlock()
	return cfg, nil
}

// GetConfig returns the configuration from the most recent successful Load.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Validate rejects configurations that cannot serve a request.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.AILink.DefaultTimeout < 0 {
		return fmt.Errorf("ailink.default_timeout must not be negative")
	}
	if strings.TrimSpace(cfg.Report.PromptSlug) == "" {
		return fmt.Errorf("report.prompt_slug is required")
	}
	for id, provider := range cfg.AILink.Providers {
		if !provider.Enabled {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(provider.AIProvider)) {
		case "gemini", "openai":
		default:
			return fmt.Errorf("ailink.providers.%s: unsupported ai_provider %q", id, provider.AIProvider)
		}
	}
	return nil
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _, _ := appid.Names(identity)
	dir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultsYAML returns a copy of the embedded defaults document.
func DefaultsYAML() []byte {
	return bytes.Clone(defaultsYAML)
}

func ensureIdentity(ctx context.Context) error {
	if identity != nil {
		return nil
	}
	loaded, err := appid.Get(ctx)
	if err != nil {
		return fmt.Errorf("load app identity: %w", err)
	}
	identity = loaded
	return nil
}

func decode(merged map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// userConfigFile returns the pinned file, or the first XDG candidate that
// exists. An empty result means no user layer.
func userConfigFile() (string, error) {
	mu.RLock()
	pinned := pinnedFile
	mu.RUnlock()
	if pinned != "" {
		if _, err := os.Stat(pinned); err != nil {
			return "", fmt.Errorf("config file %s: %w", pinned, err)
		}
		return pinned, nil
	}

	configName, binaryName, _ := appid.Names(identity)
	var legacy []string
	if binaryName != configName {
		legacy = append(legacy, binaryName)
	}
	for _, path := range gfconfig.GetAppConfigPaths(configName, legacy...) {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

func credentialList(value any) []any {
	switch list := value.(type) {
	case []any:
		return list
	case []map[string]any:
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = item
		}
		return out
	}
	return nil
}

func envLayer() (map[string]any, error) {
	overrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}
	if overrides == nil {
		overrides = map[string]any{}
	}
	_, _, prefix := appid.Names(identity)
	dynamicEnv(prefix, overrides)
	return overrides, nil
}

// getEnvSpecs lists the fixed {PREFIX}{NAME} variables. Durations stay
// strings here and are parsed by the decode hook.
func getEnvSpecs() []EnvVarSpec {
	_, _, prefix := appid.Names(identity)
	spec := func(name string, proto EnvVarSpec, path ...string) EnvVarSpec {
		proto.Name = prefix + name
		proto.Path = path
		return proto
	}
	str := EnvVarSpec{Type: EnvString}
	num := EnvVarSpec{Type: EnvInt}
	flag := EnvVarSpec{Type: EnvBool}

	return []EnvVarSpec{
		spec("HOST", str, "server", "host"),
		spec("PORT", num, "server", "port"),
		spec("READ_TIMEOUT", str, "server", "read_timeout"),
		spec("WRITE_TIMEOUT", str, "server", "write_timeout"),
		spec("IDLE_TIMEOUT", str, "server", "idle_timeout"),
		spec("SHUTDOWN_TIMEOUT", str, "server", "shutdown_timeout"),
		spec("CORS_ORIGINS", str, "server", "cors_origins"),

		spec("LOG_LEVEL", str, "logging", "level"),
		spec("LOG_PROFILE", str, "logging", "profile"),

		spec("AILINK_DEFAULT_PROVIDER", str, "ailink", "default_provider"),
		spec("AILINK_DEFAULT_TIMEOUT", str, "ailink", "default_timeout"),
		spec("AILINK_PROMPTS_DIR", str, "ailink", "prompts_dir"),

		spec("REPORT_PROMPT_SLUG", str, "report", "prompt_slug"),
		spec("REPORT_TEXT_ROLE", str, "report", "text_role"),
		spec("REPORT_IMAGE_ROLE", str, "report", "image_role"),
		spec("REPORT_ASPECT_RATIO", str, "report", "aspect_ratio"),
		spec("REPORT_OUTPUT_FORMAT", str, "report", "output_format"),

		spec("METRICS_ENABLED", flag, "metrics", "enabled"),
		spec("METRICS_PORT", num, "metrics", "port"),
	}
}
