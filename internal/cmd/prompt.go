package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/astralmap/astralmap/internal/ailink/prompt"
	"github.com/astralmap/astralmap/internal/core"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Render the report prompt for a questionnaire without calling the AI",
	Example: `  astralmap prompt --input subject.yaml
  cat subject.json | astralmap prompt --input -`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd.Context())
		registry, err := buildPromptRegistry(cfg)
		if err != nil {
			return err
		}
		return printPromptList(os.Stdout, registry.List())
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.AddCommand(promptListCmd)

	promptCmd.Flags().StringP("input", "i", "", "Questionnaire file (YAML or JSON, - for stdin)")
	promptCmd.Flags().String("prompt", "", "Prompt slug (defaults to report.prompt_slug)")
	_ = promptCmd.MarkFlagRequired("input")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	slug, _ := cmd.Flags().GetString("prompt")

	subject, err := readSubjectFile(input)
	if err != nil {
		return err
	}

	cfg := loadConfig(cmd.Context())
	service, _, err := buildService(cfg)
	if err != nil {
		return err
	}
	if slug == "" {
		slug = cfg.Report.PromptSlug
	}

	_, vars, err := buildOrchestrator(cfg, nil).Prepare(subject)
	if err != nil {
		return err
	}
	system, user, err := service.Render(slug, vars)
	if err != nil {
		return err
	}
	return writeRenderedPrompt(os.Stdout, subject, system, user)
}

func writeRenderedPrompt(w io.Writer, subject core.Subject, system, user string) error {
	if _, err := fmt.Fprintf(w, "# system (%s, %s)\n\n%s\n", subject.FullName, subject.DOB, system); err != nil {
		return err
	}
	if user == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "\n# user\n\n%s\n", user)
	return err
}

func printPromptList(w io.Writer, prompts []*prompt.Prompt) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Slug", "Version", "Description"})
	for _, p := range prompts {
		if p == nil {
			continue
		}
		tw.AppendRow(table.Row{p.Config.Slug, p.Config.Version, p.Config.Description})
	}
	tw.Render()
	return nil
}
