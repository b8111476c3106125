package output

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/astralmap/astralmap/internal/core"
)

// Report headings, in reading order.
const (
	ReportTitle   = "Tu Mapa Astral"
	ReportTagline = "Lee y recuerda quien eres."
	SymbolTitle   = "Tu Símbolo Visual"
)

type reportSection struct {
	Key     string
	Title   string
	Content string
}

func reportSections(report *core.AstralMap) []reportSection {
	if report == nil {
		return nil
	}
	return []reportSection{
		{"numerology", "Tus Números", report.Numerology},
		{"family", "Tus Raíces Familiares", report.Family},
		{"wounds", "Las Heridas como Guías", report.Wounds},
		{"nlp", "El Poder de Tu Lenguaje", report.NLP},
		{"cuento", "Tu Cuento", report.Cuento},
	}
}

// block is a paragraph of section text; Heading marks short title lines.
type block struct {
	Heading bool
	Text    string
}

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n\s*`)

// blocks splits model text on blank lines. Single line breaks inside a
// paragraph are joined with a space. Short lines without closing punctuation,
// or short lines containing a colon, are headings.
func blocks(content string) []block {
	cleaned := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if cleaned == "" {
		return nil
	}

	parts := paragraphBreak.Split(cleaned, -1)
	out := make([]block, 0, len(parts))
	for _, part := range parts {
		text := strings.Join(strings.Fields(part), " ")
		if text == "" {
			continue
		}
		out = append(out, block{Heading: isHeading(text), Text: text})
	}
	return out
}

func isHeading(text string) bool {
	if utf8.RuneCountInString(text) >= 80 {
		return false
	}
	if strings.Contains(text, ":") {
		return true
	}
	return !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "?")
}
