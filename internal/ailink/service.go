package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/schema"

	"github.com/astralmap/astralmap/internal/ailink/content"
	"github.com/astralmap/astralmap/internal/ailink/driver"
	"github.com/astralmap/astralmap/internal/ailink/prompt"
)

const (
	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
)

// ErrNoImage is returned when an image provider answers without image bytes.
var ErrNoImage = errors.New("provider returned no image data")

// Service runs prompts and image generations against configured providers.
type Service struct {
	Providers *Registry
	Registry  prompt.Registry
}

// NewService wires a provider registry and a prompt registry.
func NewService(cfg Config, prompts prompt.Registry) *Service {
	return &Service{Providers: NewRegistry(cfg), Registry: prompts}
}

// Render resolves the prompt and renders it without calling a provider.
func (s *Service) Render(slug string, vars map[string]string) (string, string, error) {
	promptDef, err := s.prompt(slug)
	if err != nil {
		return "", "", err
	}
	if err := checkRequired(promptDef, vars); err != nil {
		return "", "", err
	}
	return RenderPrompt(promptDef, vars)
}

// Generate runs a generation prompt with arbitrary variables and returns the
// schema-validated JSON payload.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if s == nil || s.Providers == nil {
		return nil, &Failure{Code: CodeNotConfigured, Message: "ailink provider registry not configured"}
	}

	promptDef, err := s.prompt(req.PromptSlug)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(promptDef, req.Variables); err != nil {
		return nil, err
	}

	systemPrompt, userPrompt, err := RenderPrompt(promptDef, req.Variables)
	if err != nil {
		return nil, err
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = promptDef.Config.Slug
	}

	resolved, err := s.Providers.Resolve(role, promptDef, req.Model)
	if err != nil {
		return nil, &Failure{Code: CodeNotConfigured, Message: "no provider available", Details: err.Error(), Err: err}
	}

	temperature, maxTokens := samplingHints(promptDef)
	driverReq := &driver.Request{
		Model: resolved.Model,
		Messages: []content.Message{
			{Role: "system", Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: systemPrompt}}},
			{Role: "user", Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: userPrompt}}},
		},
		ResponseFormat: responseFormatFor(resolved, promptDef),
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		PromptSlug:     promptDef.Config.Slug,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout(req.TimeoutSec))
	defer cancel()

	resp, err := resolved.Driver.Complete(ctx, driverReq)
	if err != nil {
		return nil, mapProviderError(err)
	}

	raw := extractContent(resp)
	if strings.TrimSpace(raw) == "" {
		return nil, &Failure{Code: CodeInvalidResponse, Message: "empty response content"}
	}

	if err := validateResponse(promptDef, []byte(raw)); err != nil {
		return nil, mapProviderError(&RawResponseError{Err: err, Raw: json.RawMessage(raw)})
	}

	response := &GenerateResponse{
		Raw:        json.RawMessage(raw),
		ProviderID: resolved.ProviderID,
		Model:      resolved.Model,
		Usage:      resp.Usage,
	}
	return response, nil
}

// GenerateImage renders a single image for the prompt text.
func (s *Service) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if s == nil || s.Providers == nil {
		return nil, &Failure{Code: CodeNotConfigured, Message: "ailink provider registry not configured"}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("image prompt is required")
	}

	resolved, err := s.Providers.ResolveImage(req.Role, req.Model)
	if err != nil {
		return nil, &Failure{Code: CodeNotConfigured, Message: "no image provider available", Details: err.Error(), Err: err}
	}
	generator := resolved.Driver.(driver.ImageGenerator)

	ctx, cancel := context.WithTimeout(ctx, s.timeout(req.TimeoutSec))
	defer cancel()

	resp, err := generator.GenerateImage(ctx, &driver.ImageRequest{
		Model:        resolved.Model,
		Prompt:       req.Prompt,
		Count:        1,
		AspectRatio:  req.AspectRatio,
		OutputFormat: req.OutputFormat,
	})
	if err != nil {
		return nil, mapProviderError(err)
	}

	for _, block := range resp.Images {
		if len(block.Data) == 0 {
			continue
		}
		mime := string(block.Type)
		if !strings.HasPrefix(mime, "image/") {
			mime = "image/png"
		}
		return &ImageResult{
			ProviderID: resolved.ProviderID,
			Model:      resolved.Model,
			MIMEType:   mime,
			Data:       block.Data,
		}, nil
	}
	return nil, &Failure{Code: CodeInvalidResponse, Message: ErrNoImage.Error(), Err: ErrNoImage}
}

func (s *Service) prompt(slug string) (*prompt.Prompt, error) {
	if s == nil || s.Registry == nil {
		return nil, errors.New("ailink prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errors.New("prompt slug is required")
	}
	return s.Registry.Get(slug)
}

func (s *Service) timeout(requested int) time.Duration {
	duration := s.Providers.cfg.DefaultTimeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if requested > 0 {
		duration = time.Duration(requested) * time.Second
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}

func checkRequired(def *prompt.Prompt, vars map[string]string) error {
	for _, required := range def.Config.Input.RequiredVariables {
		if val, ok := vars[required]; !ok || strings.TrimSpace(val) == "" {
			return fmt.Errorf("required variable %q not provided", required)
		}
	}
	return nil
}

func extractContent(resp *driver.Response) string {
	if resp == nil {
		return ""
	}
	parts := make([]string, 0, len(resp.Content))
	for _, block := range resp.Content {
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, "\n")
}

func validateResponse(def *prompt.Prompt, payload []byte) error {
	if def == nil || len(def.Config.ResponseSchema) == 0 {
		return nil
	}

	schemaBytes, err := json.Marshal(def.Config.ResponseSchema)
	if err != nil {
		return fmt.Errorf("encode response schema: %w", err)
	}
	validator, err := schema.NewValidator(schemaBytes)
	if err != nil {
		return fmt.Errorf("compile response schema: %w", err)
	}
	diagnostics, err := validator.ValidateJSON(payload)
	if err != nil {
		return err
	}
	if len(diagnostics) > 0 {
		return fmt.Errorf("response schema validation failed: %s", diagnostics[0].Message)
	}
	return nil
}
