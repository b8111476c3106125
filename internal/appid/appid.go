package appid

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/astralmap/astralmap/internal/assets/appidentity"
)

// Fallback names used when no identity can be resolved.
const (
	DefaultBinaryName = "astralmap"
	DefaultEnvPrefix  = "ASTRALMAP_"
)

func init() {
	// Explicit identity overrides (FULMEN_APP_IDENTITY_PATH, .fulmen/app.yaml)
	// still win; the embedded copy serves standalone binaries.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// Names returns the config name, binary name and env prefix (with trailing
// underscore) for identity, falling back to the built-in defaults.
func Names(identity *appidentity.Identity) (configName, binaryName, envPrefix string) {
	configName, binaryName, envPrefix = DefaultBinaryName, DefaultBinaryName, DefaultEnvPrefix
	if identity == nil {
		return configName, binaryName, envPrefix
	}
	if name := strings.TrimSpace(identity.BinaryName); name != "" {
		binaryName = name
		configName = name
	}
	if name := strings.TrimSpace(identity.ConfigName); name != "" {
		configName = name
	}
	if prefix := strings.TrimSpace(identity.EnvPrefix); prefix != "" {
		if !strings.HasSuffix(prefix, "_") {
			prefix += "_"
		}
		envPrefix = prefix
	}
	return configName, binaryName, envPrefix
}
