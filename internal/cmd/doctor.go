package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/astralmap/astralmap/internal/ailink/prompt"
	"github.com/astralmap/astralmap/internal/appid"
	"github.com/astralmap/astralmap/internal/config"
	"github.com/astralmap/astralmap/internal/observability"
)

// checkResult is the outcome of one diagnostic. A warning counts as a failed
// check but lets later checks run; fatal stops the run.
type checkResult struct {
	detail string
	hints  []string
	warn   bool
	fatal  error
}

// doctorState carries what earlier checks found to later ones.
type doctorState struct {
	cfg      *config.Config
	registry prompt.Registry
}

type doctorCheck struct {
	title string
	run   func(ctx context.Context, st *doctorState) checkResult
}

var doctorChecks = []doctorCheck{
	{"Go version", checkGoVersion},
	{"Crucible/Gofulmen", checkCrucible},
	{"config file", checkConfigFile},
	{"configuration", checkConfiguration},
	{"report prompt", checkReportPrompt},
	{"environment", func(context.Context, *doctorState) checkResult {
		return checkResult{detail: runtime.GOOS + "/" + runtime.GOARCH}
	}},
	{"AI providers", checkProviders},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, binaryName, _ := appid.Names(GetAppIdentity())
		log := observability.CLILogger
		log.Info("=== " + binaryName + " doctor ===")

		healthy := true
		st := &doctorState{}
		for i, check := range doctorChecks {
			res := check.run(cmd.Context(), st)
			line := fmt.Sprintf("[%d/%d] Checking %s...", i+1, len(doctorChecks), check.title)
			switch {
			case res.fatal != nil:
				log.Error(line+" ❌", zap.Error(res.fatal))
				return res.fatal
			case res.warn:
				healthy = false
				log.Warn(line + " ⚠️  " + res.detail)
			default:
				log.Info(line + " ✅ " + res.detail)
			}
			for _, hint := range res.hints {
				log.Info("       " + hint)
			}
		}

		if healthy {
			log.Info(fmt.Sprintf("All checks passed! Your %s installation is healthy.", binaryName))
		} else {
			log.Warn("Some checks failed. Review the output above for details.")
		}
		log.Info("=== End Diagnostics ===")
		return nil
	},
}

func checkGoVersion(context.Context, *doctorState) checkResult {
	v := runtime.Version()
	if v < "go1.23" {
		return checkResult{detail: v + " (recommended: go1.23+)", warn: true}
	}
	return checkResult{detail: v}
}

func checkCrucible(ctx context.Context, _ *doctorState) checkResult {
	v := crucible.GetVersion()
	if v.Crucible == "" || v.Gofulmen == "" {
		return checkResult{fatal: errors.New("crucible metadata unavailable")}
	}
	return checkResult{detail: fmt.Sprintf("v%s / v%s", v.Crucible, v.Gofulmen)}
}

func checkConfigFile(context.Context, *doctorState) checkResult {
	path := config.DefaultConfigPath()
	switch {
	case path == "":
		return checkResult{fatal: errors.New("cannot resolve config directory")}
	case fileExists(path):
		return checkResult{detail: path}
	}
	return checkResult{detail: "none (defaults and environment only)"}
}

func checkConfiguration(ctx context.Context, st *doctorState) checkResult {
	cfg, err := config.Load(ctx)
	if err != nil {
		return checkResult{fatal: fmt.Errorf("invalid configuration: %w", err)}
	}
	st.cfg = cfg
	return checkResult{detail: "valid"}
}

func checkReportPrompt(ctx context.Context, st *doctorState) checkResult {
	registry, err := buildPromptRegistry(st.cfg)
	if err == nil {
		err = promptHealthChecker{registry: registry, slug: st.cfg.Report.PromptSlug}.CheckHealth(ctx)
	}
	if err != nil {
		return checkResult{detail: st.cfg.Report.PromptSlug + ": " + err.Error(), warn: true}
	}
	st.registry = registry
	return checkResult{detail: fmt.Sprintf("%s (%d prompts)", st.cfg.Report.PromptSlug, len(registry.List()))}
}

func checkProviders(ctx context.Context, st *doctorState) checkResult {
	if st.registry == nil {
		return checkResult{detail: "skipped (prompts not loaded)", warn: true}
	}
	checker := providerHealthChecker{cfg: st.cfg.AILink, registry: st.registry, report: st.cfg.Report}
	if err := checker.CheckHealth(ctx); err != nil {
		_, binaryName, envPrefix := appid.Names(GetAppIdentity())
		return checkResult{
			detail: "not ready: " + err.Error(),
			warn:   true,
			hints: []string{
				fmt.Sprintf("Set %sGEMINI_API_KEY or run '%s doctor init --api-key prompt'.", envPrefix, binaryName),
				fmt.Sprintf("Run '%s doctor ailink' to see how each role resolves.", binaryName),
				"'numbers' and 'prompt' work without a provider; 'report' and POST /api/astral-map do not.",
			},
		}
	}
	return checkResult{detail: st.cfg.Report.TextRole + " / " + st.cfg.Report.ImageRole}
}

var (
	doctorInitForce  bool
	doctorInitAPIKey string
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if path == "" {
			return fmt.Errorf("config path not resolved")
		}
		if fileExists(path) && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}

		apiKey := strings.TrimSpace(doctorInitAPIKey)
		if strings.EqualFold(apiKey, "prompt") {
			var err error
			if apiKey, err = readLine(os.Stdin, os.Stdout, "Enter Gemini API key (leave blank to skip): "); err != nil {
				return err
			}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		// A file holding a key is readable by the owner only.
		mode := os.FileMode(0o644)
		if apiKey != "" {
			mode = 0o600
		}

		_, binaryName, envPrefix := appid.Names(GetAppIdentity())
		if err := os.WriteFile(path, []byte(buildInitConfig(binaryName, envPrefix, apiKey)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		observability.CLILogger.Info("Config initialized", zap.String("path", path))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger
		path := config.DefaultConfigPath()
		_, _, envPrefix := appid.Names(GetAppIdentity())

		state := "missing"
		if fileExists(path) {
			state = "exists"
		}
		log.Info(fmt.Sprintf("Config file: %s (%s)", path, state))

		log.Info("Environment:")
		for _, name := range []string{"GEMINI_API_KEY", "AILINK_DEFAULT_PROVIDER", "AILINK_PROMPTS_DIR", "LOG_LEVEL"} {
			set := "(not set)"
			if strings.TrimSpace(os.Getenv(envPrefix+name)) != "" {
				set = "(set)"
			}
			log.Info("  " + envPrefix + name + ": " + set)
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return nil
		}
		log.Info("Effective settings:")
		for _, kv := range [][2]string{
			{"report.prompt_slug", cfg.Report.PromptSlug},
			{"report.text_role", cfg.Report.TextRole},
			{"report.image_role", cfg.Report.ImageRole},
			{"ailink.prompts_dir", cfg.AILink.PromptsDir},
		} {
			log.Info(fmt.Sprintf("  %-19s %s", kv[0]+":", valueOrUnset(kv[1])))
		}
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if !fileExists(path) {
			return fmt.Errorf("config file not found: %s", path)
		}
		if err := validateConfigFile(cmd.Context()); err != nil {
			return err
		}
		observability.CLILogger.Info("Config is valid", zap.String("path", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd, doctorConfigCmd, doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAPIKey, "api-key", "", "set the Gemini API key or use 'prompt' to enter it")
}

// validateConfigFile loads the configuration and the prompt registry it points at.
func validateConfigFile(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	_, err = buildPromptRegistry(cfg)
	return err
}

type initCredential struct {
	Label    string `yaml:"label"`
	Enabled  bool   `yaml:"enabled"`
	Priority int    `yaml:"priority"`
	APIKey   string `yaml:"api_key,omitempty"`
}

type initProvider struct {
	Enabled     bool              `yaml:"enabled"`
	AIProvider  string            `yaml:"ai_provider"`
	Models      map[string]string `yaml:"models"`
	Credentials []initCredential  `yaml:"credentials"`
}

type initConfigDoc struct {
	AILink struct {
		DefaultProvider string                  `yaml:"default_provider"`
		Providers       map[string]initProvider `yaml:"providers"`
	} `yaml:"ailink"`
	Report struct {
		AspectRatio  string `yaml:"aspect_ratio"`
		OutputFormat string `yaml:"output_format"`
	} `yaml:"report"`
}

// buildInitConfig renders the starter config written by 'doctor init'.
func buildInitConfig(binaryName, envPrefix, apiKey string) string {
	var doc initConfigDoc
	doc.AILink.DefaultProvider = "gemini"
	doc.AILink.Providers = map[string]initProvider{
		"gemini": {
			Enabled:     true,
			AIProvider:  "gemini",
			Models:      map[string]string{"default": "gemini-2.5-flash", "image": "imagen-4.0-generate-001"},
			Credentials: []initCredential{{Label: "default", Enabled: true, APIKey: strings.TrimSpace(apiKey)}},
		},
	}
	doc.Report.AspectRatio = "1:1"
	doc.Report.OutputFormat = "image/png"

	var b strings.Builder
	fmt.Fprintf(&b, "# %s config - created by '%s doctor init'\n", binaryName, binaryName)
	if strings.TrimSpace(apiKey) == "" {
		fmt.Fprintf(&b, "# Set the Gemini API key via %sGEMINI_API_KEY or add api_key under credentials.\n", envPrefix)
	}
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	_ = enc.Encode(doc)
	_ = enc.Close()
	return b.String()
}

func readLine(in io.Reader, out io.Writer, label string) (string, error) {
	if _, err := fmt.Fprint(out, label); err != nil {
		return "", err
	}
	value, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func valueOrUnset(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(unset)"
	}
	return value
}
