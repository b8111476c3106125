package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandler(t *testing.T) {
	t.Cleanup(func() {
		SetAppIdentity(nil)
		SetVersionInfo("dev", "unknown", "unknown")
	})

	SetAppIdentity(nil)
	assert.Equal(t, executableName(), currentVersion().App.Name)

	SetVersionInfo("1.2.3", "abcd123", "2026-10-01T12:00:00Z")
	SetAppIdentity(&appidentity.Identity{BinaryName: "astralmap", Vendor: "astralmap", Description: "Astral map reports"})

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, AppInfo{
		Name:        "astralmap",
		Vendor:      "astralmap",
		Description: "Astral map reports",
		Version:     "1.2.3",
		Commit:      "abcd123",
		BuildDate:   "2026-10-01T12:00:00Z",
		GoVersion:   resp.App.GoVersion,
	}, resp.App)
	assert.NotEmpty(t, resp.App.GoVersion)
	assert.NotEmpty(t, resp.Dependencies.Gofulmen)
	assert.NotEmpty(t, resp.Dependencies.Crucible)
	assert.Positive(t, resp.Runtime.NumCPU)
}
