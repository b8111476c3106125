package ailink

import (
	"encoding/json"

	"github.com/astralmap/astralmap/internal/ailink/driver"
)

// GenerateRequest runs a structured-output prompt with template variables.
type GenerateRequest struct {
	Role       string
	PromptSlug string
	Variables  map[string]string
	Model      string
	TimeoutSec int
}

// GenerateResponse carries the validated JSON payload returned by the model.
type GenerateResponse struct {
	Raw        json.RawMessage `json:"raw"`
	ProviderID string          `json:"provider_id"`
	Model      string          `json:"model"`
	Usage      *driver.Usage   `json:"usage,omitempty"`
}

// ImageRequest asks an image-capable provider for a single image.
type ImageRequest struct {
	Role         string
	Prompt       string
	Model        string
	AspectRatio  string
	OutputFormat string
	TimeoutSec   int
}

// ImageResult is one generated image.
type ImageResult struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
	MIMEType   string `json:"mime_type"`
	Data       []byte `json:"-"`
}

// Failure is a classified provider error.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (f *Failure) Error() string {
	if f == nil {
		return "ailink failure"
	}
	if f.Details != "" {
		return f.Message + ": " + f.Details
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Timeout reports whether the failure was a deadline.
func (f *Failure) Timeout() bool {
	return f != nil && f.Code == CodeProviderTimeout
}
