package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/ailink"
	"github.com/astralmap/astralmap/internal/appid"
	"github.com/astralmap/astralmap/internal/config"
	"github.com/astralmap/astralmap/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display build, runtime, configuration and provider settings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeEnvInfo(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}

func writeEnvInfo(ctx context.Context, w io.Writer) error {
	_, binaryName, _ := appid.Names(GetAppIdentity())
	deps := crucible.GetVersion()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(binaryName + " environment")

	section := func(name string, rows ...[2]string) {
		t.AppendSeparator()
		t.AppendRow(table.Row{strings.ToUpper(name), ""})
		for _, row := range rows {
			t.AppendRow(table.Row{"  " + row[0], row[1]})
		}
	}

	section("application",
		[2]string{"version", versionInfo.Version},
		[2]string{"commit", versionInfo.Commit},
		[2]string{"built", versionInfo.BuildDate},
		[2]string{"gofulmen", deps.Gofulmen},
		[2]string{"crucible", deps.Crucible},
	)
	section("runtime",
		[2]string{"go", runtime.Version()},
		[2]string{"platform", runtime.GOOS + "/" + runtime.GOARCH},
		[2]string{"cpus", strconv.Itoa(runtime.NumCPU())},
	)

	cfg, err := config.Load(ctx)
	if err != nil {
		t.Render()
		observability.CLILogger.Warn("Config load failed", zap.Error(err))
		return nil
	}

	section("configuration",
		[2]string{"config file", valueOrUnset(config.DefaultConfigPath())},
		[2]string{"server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)},
		[2]string{"metrics port", strconv.Itoa(cfg.Metrics.Port)},
		[2]string{"log level", cfg.Logging.Level},
		[2]string{"log profile", cfg.Logging.Profile},
	)
	section("report",
		[2]string{"prompt", cfg.Report.PromptSlug},
		[2]string{"roles", cfg.Report.TextRole + " / " + cfg.Report.ImageRole},
		[2]string{"image", cfg.Report.OutputFormat + " " + cfg.Report.AspectRatio},
	)
	section("ailink",
		[2]string{"default provider", valueOrUnset(cfg.AILink.DefaultProvider)},
		[2]string{"timeout", cfg.AILink.DefaultTimeout.String()},
		[2]string{"prompts dir", valueOrUnset(cfg.AILink.PromptsDir)},
	)

	ids := make([]string, 0, len(cfg.AILink.Providers))
	for id := range cfg.AILink.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := cfg.AILink.Providers[id]
		keys := 0
		for _, cred := range p.Credentials {
			if strings.TrimSpace(cred.APIKey) != "" {
				keys++
			}
		}
		section("provider "+id,
			[2]string{"enabled", strconv.FormatBool(p.Enabled)},
			[2]string{"ai_provider", p.AIProvider},
			[2]string{"models", fmt.Sprintf("default=%s image=%s", p.Models[ailink.TierDefault], p.Models[ailink.TierImage])},
			[2]string{"roles", strings.Join(p.Roles, ", ")},
			[2]string{"api keys", fmt.Sprintf("%d of %d set", keys, len(p.Credentials))},
		)
	}

	t.Render()
	return nil
}
