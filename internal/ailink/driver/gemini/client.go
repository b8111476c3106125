package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/astralmap/astralmap/internal/ailink/content"
	"github.com/astralmap/astralmap/internal/ailink/driver"
)

const driverName = "gemini"

// modelsAPI is the subset of genai.Models the driver calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Client implements the Gemini driver on top of the Google GenAI SDK. Text
// completions go to Gemini models and images to Imagen models.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration

	mu     sync.Mutex
	models modelsAPI
}

// NewClient returns a client; the SDK client is created on first use.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return driverName
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsImages:         true,
		SupportsResponseSchema: true,
	}
}

func (c *Client) modelsClient(ctx context.Context) (modelsAPI, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil {
		return c.models, nil
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:     c.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
	}
	if c.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.models = client.Models
	return c.models, nil
}

// Complete sends a generateContent request. System messages become the system
// instruction; a json_schema response format is sent as a Gemini response schema.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	models, err := c.modelsClient(ctx)
	if err != nil {
		return nil, err
	}

	contents, config, err := buildContentRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	start := time.Now()
	resp, err := models.GenerateContent(ctx, req.Model, contents, config)
	trace("generateContent", req.Model, config, resp, err, time.Since(start))
	if err != nil {
		return nil, mapError(err)
	}

	return toDriverResponse(resp)
}

// GenerateImage renders images through an Imagen model.
func (c *Client) GenerateImage(ctx context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	models, err := c.modelsClient(ctx)
	if err != nil {
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = 1
	}
	mime := strings.TrimSpace(req.OutputFormat)
	if mime == "" {
		mime = "image/png"
	}
	if !strings.Contains(mime, "/") {
		mime = "image/" + mime
	}

	config := &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
		OutputMIMEType: mime,
		AspectRatio:    strings.TrimSpace(req.AspectRatio),
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	start := time.Now()
	resp, err := models.GenerateImages(ctx, model, req.Prompt, config)
	trace("generateImages", model, config, nil, err, time.Since(start))
	if err != nil {
		return nil, mapError(err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty image response")
	}

	blocks := make([]content.ContentBlock, 0, len(resp.GeneratedImages))
	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		blockType := generated.Image.MIMEType
		if blockType == "" {
			blockType = mime
		}
		blocks = append(blocks, content.ContentBlock{Type: content.ContentType(blockType), Data: generated.Image.ImageBytes})
	}

	return &driver.ImageResponse{
		Created:      time.Now().Unix(),
		OutputFormat: strings.TrimPrefix(mime, "image/"),
		Images:       blocks,
	}, nil
}

// mapError converts SDK API errors into driver.ProviderError so callers can
// classify them by status code.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		message := strings.TrimSpace(apiErr.Message)
		if message == "" {
			message = apiErr.Status
		}
		return &driver.ProviderError{Provider: driverName, StatusCode: apiErr.Code, Message: message}
	}
	return err
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
