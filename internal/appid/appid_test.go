package appid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/require"

	appidentityassets "github.com/astralmap/astralmap/internal/assets/appidentity"
)

func prepareIdentityForTest(t *testing.T) {
	t.Helper()

	// gofulmen caches identity per process; Reset clears the cache and the
	// embedded registration.
	appidentity.Reset()
	require.NoError(t, appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML))
	t.Cleanup(func() { appidentity.Reset() })
}

func TestGetEmbeddedIdentityOutsideRepo(t *testing.T) {
	prepareIdentityForTest(t)
	t.Setenv(appidentity.EnvIdentityPath, "")

	oldWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	require.NoError(t, os.Chdir(t.TempDir()))

	identity, err := Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "astralmap", identity.BinaryName)
	require.Equal(t, "ASTRALMAP_", identity.EnvPrefix)

	configName, binaryName, envPrefix := Names(identity)
	require.Equal(t, "astralmap", configName)
	require.Equal(t, "astralmap", binaryName)
	require.Equal(t, "ASTRALMAP_", envPrefix)
}

func TestGetEnvVarRemainsAuthoritative(t *testing.T) {
	prepareIdentityForTest(t)
	t.Setenv(appidentity.EnvIdentityPath, filepath.Join(t.TempDir(), "missing-app.yaml"))

	_, err := Get(context.Background())
	require.Error(t, err)

	var notFound *appidentity.NotFoundError
	require.True(t, errors.As(err, &notFound), "got %T: %v", err, err)
}

func TestNamesFallbacks(t *testing.T) {
	configName, binaryName, envPrefix := Names(nil)
	require.Equal(t, DefaultBinaryName, configName)
	require.Equal(t, DefaultBinaryName, binaryName)
	require.Equal(t, DefaultEnvPrefix, envPrefix)

	configName, _, envPrefix = Names(&appidentity.Identity{BinaryName: "am", EnvPrefix: "AM"})
	require.Equal(t, "am", configName)
	require.Equal(t, "AM_", envPrefix)
}
