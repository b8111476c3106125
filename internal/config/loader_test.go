package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralmap/astralmap/internal/ailink"
)

// isolate points XDG discovery at empty temp dirs so a developer's own
// config file never leaks into assertions.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	SetConfigFile("")
	t.Cleanup(func() { SetConfigFile("") })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ServerConfig{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{},
	}, withEmptyOrigins(cfg.Server))
	assert.Equal(t, ReportConfig{
		PromptSlug:   "astral-map",
		TextRole:     "astral-map",
		ImageRole:    "astral-map-image",
		AspectRatio:  "1:1",
		OutputFormat: "image/png",
	}, cfg.Report)
	assert.Equal(t, LoggingConfig{Level: "info", Profile: "SIMPLE"}, cfg.Logging)
	assert.Equal(t, MetricsConfig{Enabled: true, Port: 9090}, cfg.Metrics)

	assert.Equal(t, 120*time.Second, cfg.AILink.DefaultTimeout)
	gemini, ok := cfg.AILink.Providers["gemini"]
	require.True(t, ok)
	assert.True(t, gemini.Enabled)
	assert.Equal(t, "gemini", gemini.AIProvider)
	assert.Equal(t, map[string]string{"default": "gemini-2.5-flash", "image": "imagen-4.0-generate-001"}, gemini.Models)
	assert.ElementsMatch(t, []string{"astral-map", "astral-map-image"}, gemini.Roles)
	assert.Empty(t, gemini.Credentials)
}

// withEmptyOrigins treats nil and empty origin lists alike.
func withEmptyOrigins(s ServerConfig) ServerConfig {
	if s.CORSOrigins == nil {
		s.CORSOrigins = []string{}
	}
	return s
}

func TestLoadLayering(t *testing.T) {
	cases := []struct {
		name      string
		env       map[string]string
		file      string
		overrides map[string]any
		check     func(t *testing.T, cfg *Config)
	}{
		{
			name:      "runtime overrides",
			overrides: map[string]any{"server": map[string]any{"port": 9000, "host": "0.0.0.0"}, "logging": map[string]any{"level": "debug"}},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, LoggingConfig{Level: "debug", Profile: "SIMPLE"}, cfg.Logging)
			},
		},
		{
			name: "environment",
			env: map[string]string{
				"ASTRALMAP_PORT":            "3000",
				"ASTRALMAP_LOG_LEVEL":       "warn",
				"ASTRALMAP_METRICS_ENABLED": "false",
				"ASTRALMAP_READ_TIMEOUT":    "45s",
				"ASTRALMAP_CORS_ORIGINS":    "https://a.example,https://b.example",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3000, cfg.Server.Port)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.False(t, cfg.Metrics.Enabled)
				assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
			},
		},
		{
			name:      "overrides beat environment",
			env:       map[string]string{"ASTRALMAP_PORT": "4000"},
			overrides: map[string]any{"server": map[string]any{"port": 5000}},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5000, cfg.Server.Port)
			},
		},
		{
			name: "environment beats user file",
			env:  map[string]string{"ASTRALMAP_PORT": "7171"},
			file: "server:\n  port: 7070\nailink:\n  providers:\n    gemini:\n      credentials:\n        - label: file\n          enabled: true\n          api_key: from-file\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7171, cfg.Server.Port)
				gemini := cfg.AILink.Providers["gemini"]
				require.Len(t, gemini.Credentials, 1)
				assert.Equal(t, "from-file", gemini.Credentials[0].APIKey)
				assert.Equal(t, "gemini-2.5-flash", gemini.Models["default"])
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if tc.file != "" {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tc.file), 0o600))
				SetConfigFile(path)
			}

			cfg, err := Load(context.Background(), tc.overrides)
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	SetConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load(context.Background())
	require.Error(t, err)
}

func TestAILinkEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ASTRALMAP_GEMINI_API_KEY", "g-secret")
	t.Setenv("ASTRALMAP_AILINK_PROVIDERS_OPENAI_IMAGES_AI_PROVIDER", "openai")
	t.Setenv("ASTRALMAP_AILINK_PROVIDERS_OPENAI_IMAGES_ENABLED", "true")
	t.Setenv("ASTRALMAP_AILINK_PROVIDERS_OPENAI_IMAGES_MODELS_IMAGE", "gpt-image-1")
	t.Setenv("ASTRALMAP_AILINK_PROVIDERS_OPENAI_IMAGES_CREDENTIALS_0_API_KEY", "o-secret")
	t.Setenv("ASTRALMAP_AILINK_PROVIDERS_OPENAI_IMAGES_CREDENTIALS_0_PRIORITY", "5")
	t.Setenv("ASTRALMAP_AILINK_PROVIDERS_OPENAI_IMAGES_DEFAULT_CREDENTIAL", "main")
	t.Setenv("ASTRALMAP_AILINK_ROUTING_ASTRAL_MAP_IMAGE", "openai-images")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	gemini := cfg.AILink.Providers["gemini"]
	require.Len(t, gemini.Credentials, 1)
	assert.Equal(t, "g-secret", gemini.Credentials[0].APIKey)
	assert.True(t, gemini.Credentials[0].Enabled)

	openai, ok := cfg.AILink.Providers["openai-images"]
	require.True(t, ok)
	assert.True(t, openai.Enabled)
	assert.Equal(t, "openai", openai.AIProvider)
	assert.Equal(t, "gpt-image-1", openai.Models["image"])
	assert.Equal(t, "main", openai.DefaultCredential)
	require.Len(t, openai.Credentials, 1)
	assert.Equal(t, "o-secret", openai.Credentials[0].APIKey)
	assert.Equal(t, 5, openai.Credentials[0].Priority)

	assert.Equal(t, "openai-images", cfg.AILink.Routing["astral-map-image"])
}

func TestGeminiKeyKeepsFileCredentials(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`ailink:
  providers:
    gemini:
      default_credential: main
      credentials:
        - label: main
          enabled: true
          priority: 10
          api_key: from-file
        - label: spare
          enabled: true
          priority: 1
          api_key: spare-key
`), 0o600))
	SetConfigFile(path)
	t.Setenv("ASTRALMAP_GEMINI_API_KEY", "from-env")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	gemini := cfg.AILink.Providers["gemini"]
	assert.Equal(t, "main", gemini.DefaultCredential)
	require.Len(t, gemini.Credentials, 2)
	assert.Equal(t, ailink.CredentialConfig{Label: "main", Enabled: true, APIKey: "from-env", Priority: 10}, gemini.Credentials[0])
	assert.Equal(t, ailink.CredentialConfig{Label: "spare", Enabled: true, APIKey: "spare-key", Priority: 1}, gemini.Credentials[1])
}

func TestValidate(t *testing.T) {
	isolate(t)
	_, err := Load(context.Background(), map[string]any{"server": map[string]any{"port": 70000}})
	require.ErrorContains(t, err, "server.port")

	_, err = Load(context.Background(), map[string]any{"report": map[string]any{"prompt_slug": " "}})
	require.ErrorContains(t, err, "prompt_slug")

	_, err = Load(context.Background(), map[string]any{
		"ailink": map[string]any{"providers": map[string]any{"x": map[string]any{"enabled": true, "ai_provider": "anthropic"}}},
	})
	require.ErrorContains(t, err, "unsupported ai_provider")
}

func TestGetConfigReturnsLatest(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	cfg1, err := Load(ctx)
	require.NoError(t, err)

	cfg2, err := Load(ctx, map[string]any{"server": map[string]any{"port": cfg1.Server.Port + 1000}})
	require.NoError(t, err)
	assert.Equal(t, cfg2.Server.Port, GetConfig().Server.Port)
}

func TestEnvSpecs(t *testing.T) {
	isolate(t)
	_, err := Load(context.Background())
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, spec := range getEnvSpecs() {
		names[spec.Name] = true
	}
	assert.True(t, names["ASTRALMAP_LOG_LEVEL"])
	assert.True(t, names["ASTRALMAP_PORT"])
	assert.True(t, names["ASTRALMAP_AILINK_DEFAULT_TIMEOUT"])
	assert.True(t, names["ASTRALMAP_REPORT_IMAGE_ROLE"])
}
