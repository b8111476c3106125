package output

import (
	"fmt"
	"strings"

	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/numerology"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders numerology bundles and finished reports.
type Formatter interface {
	FormatNumbers(req core.NumerologyRequest, bundle numerology.Bundle) (string, error)
	FormatReport(report *core.AstralMap) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// figure is one labelled row of the numbers summary.
type figure struct {
	Label string
	Value string
}

func figures(bundle numerology.Bundle) []figure {
	return []figure{
		{"Esencia", fmt.Sprint(bundle.Essence)},
		{"Imagen", fmt.Sprint(bundle.Image)},
		{"Misión", fmt.Sprint(bundle.Mission)},
		{"Sendero Natal", fmt.Sprint(bundle.LifePath)},
		{"Karmas", bundle.Karmas},
		{"Deuda Kármica", bundle.KarmicDebt},
	}
}

func subjectLine(req core.NumerologyRequest) string {
	name := strings.TrimSpace(req.FullName)
	dob := strings.TrimSpace(req.DOB)
	switch {
	case name == "":
		return dob
	case dob == "":
		return name
	default:
		return fmt.Sprintf("%s (%s)", name, dob)
	}
}
