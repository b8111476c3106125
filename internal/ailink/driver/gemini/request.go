package gemini

import (
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/astralmap/astralmap/internal/ailink/content"
	"github.com/astralmap/astralmap/internal/ailink/driver"
)

func buildContentRequest(req *driver.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if len(req.Messages) == 0 {
		return nil, nil, fmt.Errorf("messages are required")
	}

	config := &genai.GenerateContentConfig{}
	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		text, err := joinText(msg.Content)
		if err != nil {
			return nil, nil, err
		}
		switch strings.ToLower(msg.Role) {
		case "system":
			system = append(system, text)
		case "assistant", "model":
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("at least one user message is required")
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}

	if rf := req.ResponseFormat; rf != nil && rf.Type != "" && rf.Type != "text" {
		config.ResponseMIMEType = "application/json"
		if rf.JSONSchema != nil && len(rf.JSONSchema.Schema) > 0 {
			config.ResponseSchema = toSchema(rf.JSONSchema.Schema)
		}
	}

	return contents, config, nil
}

func joinText(blocks []content.ContentBlock) (string, error) {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Type != content.ContentTypeText {
			return "", fmt.Errorf("unsupported content type: %s", block.Type)
		}
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, "\n"), nil
}

var schemaTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
}

// toSchema translates the JSON Schema subset used by prompt response schemas
// into the OpenAPI-style schema Gemini accepts. Unknown keywords are dropped.
func toSchema(def map[string]any) *genai.Schema {
	if def == nil {
		return nil
	}
	out := &genai.Schema{}
	if typ, ok := def["type"].(string); ok {
		out.Type = schemaTypes[strings.ToLower(typ)]
	}
	if desc, ok := def["description"].(string); ok {
		out.Description = desc
	}
	if enum := stringList(def["enum"]); len(enum) > 0 {
		out.Enum = enum
	}
	if items, ok := def["items"].(map[string]any); ok {
		out.Items = toSchema(items)
	}
	if props, ok := def["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]any); ok {
				out.Properties[name] = toSchema(child)
			}
		}
	}
	out.Required = stringList(def["required"])
	if len(out.Properties) > 0 {
		out.PropertyOrdering = propertyOrder(out.Properties, out.Required)
	}
	return out
}

// propertyOrder lists required properties first, in declared order, then the rest alphabetically.
func propertyOrder(props map[string]*genai.Schema, required []string) []string {
	order := make([]string, 0, len(props))
	seen := make(map[string]bool, len(props))
	for _, name := range required {
		if _, ok := props[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(props))
	for name := range props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func stringList(value any) []string {
	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
