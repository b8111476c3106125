package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/ailink/driver"
	"github.com/astralmap/astralmap/internal/appid"
	"github.com/astralmap/astralmap/internal/config"
	"github.com/astralmap/astralmap/internal/observability"
)

type buildVersion struct {
	Version   string
	Commit    string
	BuildDate string
}

var (
	cfgFile   string
	verbose   bool
	traceFile string

	appIdentity  *appidentity.Identity
	traceCleanup func()
	versionInfo  buildVersion
)

// SetVersionInfo records the build metadata injected by main.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo = buildVersion{Version: version, Commit: commit, BuildDate: buildDate}
}

// GetAppIdentity returns the identity resolved at startup. It may be nil
// before initConfig runs.
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	// Replaced by the app identity binary name.
	Use:   filepath.Base(os.Args[0]),
	Short: "Numerology-driven astral map reports",
	Long: `Derives numerological figures from a name and birth date and turns them,
together with a short biography, into a narrative astral map report.`,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if traceCleanup != nil {
			traceCleanup()
			traceCleanup = nil
		}
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// CLI commands stay silent on stdout; serve installs the real system.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// --help is rendered before OnInitialize hooks run.
	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		appIdentity = identity
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file path")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&traceFile, "trace", "", "append provider requests and responses to this NDJSON file")
}

// initConfig resolves identity, logging, tracing and the config file location.
// Commands call config.Load themselves so that a broken file only fails the
// commands that need it.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity from .fulmen/app.yaml", err)
	}
	appIdentity = identity
	applyIdentity(identity)

	_, binaryName, _ := appid.Names(identity)
	observability.InitCLILogger(binaryName, verbose)

	config.SetConfigFile(cfgFile)

	if traceFile == "" {
		return
	}
	cleanup, err := driver.EnableTracing(traceFile)
	if err != nil {
		observability.CLILogger.Warn("Tracing disabled", zap.String("file", traceFile), zap.Error(err))
		return
	}
	traceCleanup = cleanup
	observability.CLILogger.Debug("Provider tracing enabled", zap.String("file", traceFile))
}

// applyIdentity updates CLI help surfaces from the app identity.
func applyIdentity(identity *appidentity.Identity) {
	if identity == nil {
		return
	}
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = "config file path (default $XDG_CONFIG_HOME/" + identity.ConfigName + "/config.yaml)"
	}
}

// loadConfig loads the layered configuration, exiting with CONFIG_INVALID
// semantics when it cannot be used.
func loadConfig(ctx context.Context) *config.Config {
	cfg, err := config.Load(ctx)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	return cfg
}
