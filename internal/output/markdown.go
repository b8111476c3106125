package output

import (
	"fmt"
	"strings"

	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/numerology"
)

// MarkdownFormatter renders results as markdown documents.
type MarkdownFormatter struct {
	// ImagePath, when set, is linked as the symbolic image.
	ImagePath string
}

// FormatNumbers renders the figures and stages as markdown tables.
func (f *MarkdownFormatter) FormatNumbers(req core.NumerologyRequest, bundle numerology.Bundle) (string, error) {
	var sb strings.Builder
	if title := subjectLine(req); title != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(title)))
	}
	writeNumbers(&sb, bundle, "###")
	return sb.String(), nil
}

func writeNumbers(sb *strings.Builder, bundle numerology.Bundle, level string) {
	sb.WriteString("| Figura | Valor |\n")
	sb.WriteString("|--------|-------|\n")
	for _, fig := range figures(bundle) {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", fig.Label, escapeMarkdownCell(fig.Value)))
	}

	writeStages(sb, level+" Pináculos", bundle.PinnacleStages, numerology.PinnacleLabel)
	writeStages(sb, level+" Desafíos", bundle.ChallengeStages, numerology.ChallengeLabel)
}

func writeStages(sb *strings.Builder, heading string, stages [4]numerology.Stage, label func(int) string) {
	sb.WriteString(fmt.Sprintf("\n%s\n\n", heading))
	sb.WriteString("| Etapa | Edades | Valor |\n")
	sb.WriteString("|-------|--------|-------|\n")
	for i, stage := range stages {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", label(i), stage.Range(), stage.Value))
	}
}

// FormatReport renders the report as a standalone markdown document.
func (f *MarkdownFormatter) FormatReport(report *core.AstralMap) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", ReportTitle))
	sb.WriteString(fmt.Sprintf("_%s_\n", ReportTagline))

	if path := strings.TrimSpace(f.ImagePath); path != "" {
		sb.WriteString(fmt.Sprintf("\n## %s\n\n", SymbolTitle))
		sb.WriteString(fmt.Sprintf("![Símbolo astral personal](%s)\n", path))
	}

	for _, section := range reportSections(report) {
		sb.WriteString(fmt.Sprintf("\n## %s\n", section.Title))
		if section.Key == "numerology" {
			sb.WriteString("\n")
			writeNumbers(&sb, report.Numbers, "###")
		}
		for _, b := range blocks(section.Content) {
			if b.Heading {
				sb.WriteString(fmt.Sprintf("\n#### %s\n", b.Text))
				continue
			}
			sb.WriteString(fmt.Sprintf("\n%s\n", b.Text))
		}
	}

	if id := report.Provenance.ReportID; id != "" {
		sb.WriteString(fmt.Sprintf("\n---\n\n<sub>Informe %s</sub>\n", id))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
