package output

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/numerology"
)

func sampleBundle(t *testing.T) numerology.Bundle {
	t.Helper()
	bundle, err := numerology.Derive("Ana María López", "1990-07-15")
	require.NoError(t, err)
	return bundle
}

func sampleReport(t *testing.T) *core.AstralMap {
	return &core.AstralMap{
		Analysis: core.Analysis{
			Numerology: "Tu Esencia\n\nEres una persona\nsensible. Lo sabes.",
			Family:     "Familia.",
			Wounds:     "Heridas.",
			NLP:        "El Patrón en tu Lenguaje\n\nHablas con cuidado.",
			Cuento:     "Había una vez | un río.",
		},
		SymbolicImage:       "cG5n",
		SymbolicImagePrompt: "a golden tree",
		Numbers:             sampleBundle(t),
		Provenance:          core.Provenance{ReportID: "r-1"},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestFormatNumbers(t *testing.T) {
	bundle := sampleBundle(t)
	req := core.NumerologyRequest{FullName: "Ana María López", DOB: "1990-07-15"}

	tableRendered, err := NewFormatter(FormatTable).FormatNumbers(req, bundle)
	require.NoError(t, err)
	require.Contains(t, tableRendered, "Sendero Natal")
	require.Contains(t, tableRendered, "Primer Pináculo")
	require.Contains(t, tableRendered, "Cuarto Desafío")
	require.Contains(t, tableRendered, bundle.PinnacleStages[3].Range())

	jsonRendered, err := NewFormatter(FormatJSON).FormatNumbers(req, bundle)
	require.NoError(t, err)
	var doc NumbersDocument
	require.NoError(t, json.Unmarshal([]byte(jsonRendered), &doc))
	require.Equal(t, bundle.Pinnacles, doc.Numbers.Pinnacles)
	require.Equal(t, "Ana María López", doc.FullName)

	markdownRendered, err := NewFormatter(FormatMarkdown).FormatNumbers(req, bundle)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(markdownRendered, "## Ana María López (1990-07-15)"))
	require.Contains(t, markdownRendered, "| Figura | Valor |")
	require.Contains(t, markdownRendered, "### Desafíos")
}

func TestFormatReportMarkdown(t *testing.T) {
	rendered, err := (&MarkdownFormatter{ImagePath: "symbolic.thumbnail.jpg"}).FormatReport(sampleReport(t))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(rendered, "# Tu Mapa Astral"))
	require.Contains(t, rendered, "![Símbolo astral personal](symbolic.thumbnail.jpg)")
	require.Contains(t, rendered, "## Tus Raíces Familiares")
	require.Contains(t, rendered, "#### Tu Esencia")
	require.Contains(t, rendered, "Eres una persona sensible. Lo sabes.")
	require.Contains(t, rendered, "#### El Patrón en tu Lenguaje")
	require.Contains(t, rendered, "Informe r-1")

	numbersAt := strings.Index(rendered, "## Tus Números")
	familyAt := strings.Index(rendered, "## Tus Raíces Familiares")
	require.Less(t, numbersAt, strings.Index(rendered, "| Figura | Valor |"))
	require.Less(t, strings.Index(rendered, "| Figura | Valor |"), familyAt)
}

func TestFormatReportTableAndJSON(t *testing.T) {
	report := sampleReport(t)

	tableRendered, err := NewFormatter(FormatTable).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, tableRendered, "TU CUENTO")
	require.Contains(t, tableRendered, "a golden tree")

	jsonRendered, err := (&JSONFormatter{OmitImage: true}).FormatReport(report)
	require.NoError(t, err)
	require.NotContains(t, jsonRendered, "cG5n")
	require.Contains(t, jsonRendered, `"report_id":"r-1"`)
	require.Equal(t, "cG5n", report.SymbolicImage)
}

func TestBlocks(t *testing.T) {
	got := blocks("Título corto\n\nUna línea\npartida en dos.\n\n\n\nNota: breve.\r\n\r\n¿Pregunta?")
	require.Equal(t, []block{
		{Heading: true, Text: "Título corto"},
		{Heading: false, Text: "Una línea partida en dos."},
		{Heading: true, Text: "Nota: breve."},
		{Heading: false, Text: "¿Pregunta?"},
	}, got)

	require.Nil(t, blocks("  \n "))
	require.False(t, isHeading(strings.Repeat("palabra ", 12)))
}

func TestMarkdownEscaping(t *testing.T) {
	require.Equal(t, "a\\|b", escapeMarkdownCell("a|b"))
}

func TestThumbnailShrinksImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1000, 500))))

	thumb, err := Thumbnail(buf.Bytes(), 200, ThumbnailQuality)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	require.Equal(t, 200, img.Bounds().Dx())
	require.Equal(t, 100, img.Bounds().Dy())
}

func TestThumbnailErrors(t *testing.T) {
	_, err := Thumbnail([]byte("not an image"), 200, 80)
	require.Error(t, err)

	_, err = Thumbnail(nil, 0, 80)
	require.Error(t, err)

	require.Error(t, EncodeImage(&bytes.Buffer{}, image.NewRGBA(image.Rect(0, 0, 1, 1)), "gif", 80))
}
