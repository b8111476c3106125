package driver

import (
	"context"

	"github.com/astralmap/astralmap/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "gemini").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// ImageGenerator is implemented by drivers that can render images from a text prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsImages         bool
	SupportsResponseSchema bool
	SupportedModels        []string
}

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type       string      `json:"type"` // "text", "json_object", "json_schema"
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema carries a named response schema for structured output.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []content.Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
	Metadata       map[string]string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
}

// ImageRequest asks a provider for one or more images.
type ImageRequest struct {
	Model        string
	Prompt       string
	Count        int
	Size         string
	AspectRatio  string
	Quality      string
	OutputFormat string
}

// ImageResponse holds generated images as binary content blocks.
type ImageResponse struct {
	Created      int64
	OutputFormat string
	Size         string
	Quality      string
	Images       []content.ContentBlock
}
