package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/astralmap/astralmap/internal/errors"
	"github.com/astralmap/astralmap/internal/numerology"
	"github.com/astralmap/astralmap/internal/observability"
)

// selfTestName and selfTestDOB derive to a life path of 5.
const (
	selfTestName = "Ana María López"
	selfTestDOB  = "1990-07-15"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify the binary can start: version info, configuration, the numerology engine and the report prompt.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", apperrors.NewConfigInvalidError("Logger not initialized"))
			return
		}

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", apperrors.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg := loadConfig(cmd.Context())
		logger.Info("✅ Configuration loaded")

		if err := engineSelfTest(); err != nil {
			ExitWithCode(logger, foundry.ExitFailure, "Numerology self-test failed", apperrors.NewInternalError(err.Error()))
			return
		}
		logger.Info("✅ Numerology engine self-test passed")

		prompts, err := buildPromptRegistry(cfg)
		if err == nil {
			err = promptHealthChecker{registry: prompts, slug: cfg.Report.PromptSlug}.CheckHealth(cmd.Context())
		}
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Report prompt unavailable", apperrors.NewConfigInvalidError(err.Error()))
			return
		}
		logger.Info("✅ Report prompt available", zap.String("prompt", cfg.Report.PromptSlug))

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

// engineSelfTest derives a fixed subject and checks the headline figures.
func engineSelfTest() error {
	bundle, err := numerology.Derive(selfTestName, selfTestDOB)
	if err != nil {
		return err
	}
	if bundle.LifePath != 5 {
		return fmt.Errorf("unexpected bundle for %s (%s): life path %d", selfTestName, selfTestDOB, bundle.LifePath)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
