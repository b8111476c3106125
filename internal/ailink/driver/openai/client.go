package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/astralmap/astralmap/internal/ailink/driver"
)

const (
	driverName     = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
)

// Client implements the OpenAI driver via direct HTTP. Any endpoint that speaks
// the chat completions and images API shape can be targeted through BaseURL.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		BaseURL: url,
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

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	payload, err := buildChatRequest(req)
	if err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, "/chat/completions", payload.Model, payload)
	if err != nil {
		return nil, err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toDriverResponse(&parsed)
}

func (c *Client) ready() error {
	if c == nil {
		return fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

// post sends payload as JSON and returns the body of a 2xx response. Every
// exchange, failed or not, is recorded through driver.Trace.
func (c *Client) post(ctx context.Context, path, model string, payload any) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	entry := driver.TraceEntry{
		Driver:      driverName,
		Endpoint:    strings.TrimRight(c.BaseURL, "/") + path,
		Method:      http.MethodPost,
		Model:       model,
		RequestBody: body,
	}
	start := time.Now()
	defer func() {
		entry.DurationMs = time.Since(start).Milliseconds()
		driver.Trace(entry)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, entry.Method, entry.Endpoint, bytes.NewReader(body))
	if err != nil {
		entry.Error = err.Error()
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		entry.Error = err.Error()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	entry.StatusCode = resp.StatusCode
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		entry.Error = err.Error()
		return nil, fmt.Errorf("read response: %w", err)
	}
	if json.Valid(respBody) {
		entry.Response = respBody
	}

	if resp.StatusCode/100 != 2 {
		return nil, &driver.ProviderError{
			Provider:    driverName,
			StatusCode:  resp.StatusCode,
			Message:     strings.TrimSpace(string(respBody)),
			RawResponse: respBody,
		}
	}
	return respBody, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
