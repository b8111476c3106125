package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/numerology"
)

// TableFormatter renders results as terminal tables and wrapped text.
type TableFormatter struct {
	// Width wraps report paragraphs; zero means 100 columns.
	Width int
}

// FormatNumbers renders the figures and the two stage tables.
func (f *TableFormatter) FormatNumbers(req core.NumerologyRequest, bundle numerology.Bundle) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if title := subjectLine(req); title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"Figura", "Valor"})
	for _, fig := range figures(bundle) {
		t.AppendRow(table.Row{fig.Label, fig.Value})
	}
	t.AppendFooter(table.Row{
		"Sumas",
		fmt.Sprintf("vocales %d, consonantes %d, nombre %d, fecha %d",
			bundle.Sums.Vowels, bundle.Sums.Consonants, bundle.Sums.Name, bundle.Sums.LifePath),
	})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(stageTable("Pináculos", bundle.PinnacleStages, numerology.PinnacleLabel))
	sb.WriteString("\n\n")
	sb.WriteString(stageTable("Desafíos", bundle.ChallengeStages, numerology.ChallengeLabel))
	return sb.String(), nil
}

func stageTable(title string, stages [4]numerology.Stage, label func(int) string) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Etapa", "Edades", "Valor"})
	for i, stage := range stages {
		t.AppendRow(table.Row{label(i), stage.Range(), stage.Value})
	}
	return t.Render()
}

// FormatReport renders the numbers followed by every narrative section.
func (f *TableFormatter) FormatReport(report *core.AstralMap) (string, error) {
	if report == nil {
		return "", nil
	}

	numbers, err := f.FormatNumbers(core.NumerologyRequest{}, report.Numbers)
	if err != nil {
		return "", err
	}

	width := f.Width
	if width <= 0 {
		width = 100
	}

	var sb strings.Builder
	sb.WriteString(text.Bold.Sprint(ReportTitle))
	sb.WriteString("\n")
	sb.WriteString(ReportTagline)
	sb.WriteString("\n\n")
	sb.WriteString(numbers)

	for _, section := range reportSections(report) {
		sb.WriteString("\n\n")
		sb.WriteString(text.Bold.Sprint(strings.ToUpper(section.Title)))
		sb.WriteString("\n")
		for _, b := range blocks(section.Content) {
			sb.WriteString("\n")
			if b.Heading {
				sb.WriteString(text.Underline.Sprint(b.Text))
			} else {
				sb.WriteString(text.WrapSoft(b.Text, width))
			}
			sb.WriteString("\n")
		}
	}

	if prompt := strings.TrimSpace(report.SymbolicImagePrompt); prompt != "" {
		sb.WriteString("\n")
		sb.WriteString(text.Bold.Sprint(strings.ToUpper(SymbolTitle)))
		sb.WriteString("\n")
		sb.WriteString(text.WrapSoft(prompt, width))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
