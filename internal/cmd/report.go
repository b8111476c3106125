package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/ailink/encode"
	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/observability"
	"github.com/astralmap/astralmap/internal/output"
)

// Files written by report --out-dir.
const (
	reportMarkdownFile = "report.md"
	reportJSONFile     = "report.json"
	symbolicImageBase  = "symbolic"
	symbolicThumbFile  = "symbolic.thumbnail.jpg"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a full astral map report for a questionnaire",
	Long: `Derive the numerology bundle, ask the configured text model for the narrative
sections and the image model for the symbolic image, then render the report.

With --out-dir the report is also written as report.md, report.json, the
symbolic image and a JPEG thumbnail used by the markdown file.`,
	Example: `  astralmap report --input subject.yaml
  astralmap report --input subject.yaml --out-dir ./ana --format markdown`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("input", "i", "", "Questionnaire file (YAML or JSON, - for stdin)")
	reportCmd.Flags().String("out-dir", "", "Directory for report.md, report.json and image files")
	reportCmd.Flags().StringP("format", "f", "table", "Stdout format: table, json, markdown")
	_ = reportCmd.MarkFlagRequired("input")
}

func runReport(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	outDirFlag, _ := cmd.Flags().GetString("out-dir")

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	subject, err := readSubjectFile(input)
	if err != nil {
		return err
	}
	outDir, err := ensureOutDir(outDirFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg := loadConfig(ctx)
	service, _, err := buildService(cfg)
	if err != nil {
		return err
	}
	orch := buildOrchestrator(cfg, service)

	observability.CLILogger.Info("Generating astral map",
		zap.String("subject", subject.FullName),
		zap.String("prompt", cfg.Report.PromptSlug))

	report, err := orch.AstralMap(ctx, subject)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(format)
	if outDir != "" {
		written, err := writeReportFiles(outDir, report, orch.ImageMIME())
		if err != nil {
			return err
		}
		for _, path := range written {
			observability.CLILogger.Info("Wrote file", zap.String("path", path))
		}
		switch format {
		case output.FormatJSON:
			formatter = &output.JSONFormatter{Indent: true, OmitImage: true}
		case output.FormatMarkdown:
			formatter = &output.MarkdownFormatter{ImagePath: filepath.Join(outDir, symbolicImageName(reportImageMIME(report, orch.ImageMIME())))}
		}
	}

	rendered, err := formatter.FormatReport(report)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, rendered)
	return err
}

// writeReportFiles writes the report bundle into dir and returns the paths
// written. The image extension follows the report's own MIME type;
// fallbackMIME is used only when the report does not carry one. The
// thumbnail is skipped with a warning when the image cannot be
// decoded; report.md then links the full image.
func writeReportFiles(dir string, report *core.AstralMap, fallbackMIME string) ([]string, error) {
	if report == nil {
		return nil, fmt.Errorf("no report to write")
	}

	image, err := encode.DecodeBase64String(report.SymbolicImage)
	if err != nil {
		return nil, fmt.Errorf("decode symbolic image: %w", err)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	imageName := symbolicImageName(reportImageMIME(report, fallbackMIME))
	if err := write(imageName, image); err != nil {
		return written, err
	}

	linked := imageName
	if thumb, err := output.Thumbnail(image, output.ThumbnailMaxSize, output.ThumbnailQuality); err != nil {
		if observability.CLILogger != nil {
			observability.CLILogger.Warn("Skipping thumbnail", zap.Error(err))
		}
	} else {
		if err := write(symbolicThumbFile, thumb); err != nil {
			return written, err
		}
		linked = symbolicThumbFile
	}

	markdown, err := (&output.MarkdownFormatter{ImagePath: linked}).FormatReport(report)
	if err != nil {
		return written, err
	}
	if err := write(reportMarkdownFile, []byte(markdown+"\n")); err != nil {
		return written, err
	}

	doc, err := (&output.JSONFormatter{Indent: true, OmitImage: true}).FormatReport(report)
	if err != nil {
		return written, err
	}
	if err := write(reportJSONFile, []byte(doc+"\n")); err != nil {
		return written, err
	}
	return written, nil
}

func reportImageMIME(report *core.AstralMap, fallback string) string {
	if report != nil && strings.TrimSpace(report.SymbolicImageMimeType) != "" {
		return report.SymbolicImageMimeType
	}
	return fallback
}

// symbolicImageName picks the file name for the decoded image from its MIME type.
func symbolicImageName(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return symbolicImageBase + ".jpg"
	case "image/webp":
		return symbolicImageBase + ".webp"
	default:
		return symbolicImageBase + ".png"
	}
}
