package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"
)

// buildInfo is set once at startup by the cmd package.
var buildInfo = struct {
	sync.RWMutex
	version, commit, date string
	identity              *appidentity.Identity
}{version: "dev", commit: "unknown", date: "unknown"}

func SetVersionInfo(version, commit, buildDate string) {
	buildInfo.Lock()
	defer buildInfo.Unlock()
	buildInfo.version, buildInfo.commit, buildInfo.date = version, commit, buildDate
}

func SetAppIdentity(identity *appidentity.Identity) {
	buildInfo.Lock()
	defer buildInfo.Unlock()
	buildInfo.identity = identity
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	App          AppInfo     `json:"app"`
	Dependencies DepInfo     `json:"dependencies"`
	Runtime      RuntimeInfo `json:"runtime"`
}

type AppInfo struct {
	Name        string `json:"name"`
	Vendor      string `json:"vendor,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	Commit      string `json:"git_commit"`
	BuildDate   string `json:"build_date"`
	GoVersion   string `json:"go_version,omitempty"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentVersion())
}

func currentVersion() VersionResponse {
	buildInfo.RLock()
	defer buildInfo.RUnlock()

	app := AppInfo{
		Name:      executableName(),
		Version:   buildInfo.version,
		Commit:    buildInfo.commit,
		BuildDate: buildInfo.date,
		GoVersion: runtime.Version(),
	}
	if id := buildInfo.identity; id != nil {
		app.Name, app.Vendor, app.Description = id.BinaryName, id.Vendor, id.Description
	}

	deps := crucible.GetVersion()
	return VersionResponse{
		App:          app,
		Dependencies: DepInfo{Gofulmen: deps.Gofulmen, Crucible: deps.Crucible},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}
}

func executableName() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "unknown"
	}
	return filepath.Base(os.Args[0])
}
