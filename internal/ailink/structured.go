package ailink

import (
	"strings"

	"github.com/astralmap/astralmap/internal/ailink/driver"
	"github.com/astralmap/astralmap/internal/ailink/prompt"
)

// responseFormatFor asks for schema-constrained output when the driver
// supports it, and plain JSON mode otherwise.
func responseFormatFor(resolved *ResolvedProvider, def *prompt.Prompt) *driver.ResponseFormat {
	if def == nil {
		return &driver.ResponseFormat{Type: "json_object"}
	}

	if resolved != nil && resolved.Driver != nil && resolved.Driver.Capabilities().SupportsResponseSchema {
		if schema := def.Config.ResponseSchema; len(schema) > 0 {
			return &driver.ResponseFormat{
				Type: "json_schema",
				JSONSchema: &driver.JSONSchema{
					Name:   schemaName(def.Config.Slug),
					Strict: true,
					Schema: schema,
				},
			}
		}
	}

	return &driver.ResponseFormat{Type: "json_object"}
}

// schemaName returns an identifier safe for OpenAI's json_schema.name
// (alphanumeric and underscore).
func schemaName(slug string) string {
	name := strings.TrimSpace(slug)
	if name == "" {
		name = "astralmap_schema"
	}
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name)
}

// samplingHints reads temperature and max_tokens from prompt provider hints.
func samplingHints(def *prompt.Prompt) (*float64, *int) {
	if def == nil {
		return nil, nil
	}
	var temperature *float64
	var maxTokens *int
	if value, ok := numberHint(def.Config.ProviderHints["temperature"]); ok {
		temperature = &value
	}
	if value, ok := numberHint(def.Config.ProviderHints["max_tokens"]); ok && value > 0 {
		n := int(value)
		maxTokens = &n
	}
	return temperature, maxTokens
}

func numberHint(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	default:
		return 0, false
	}
}
