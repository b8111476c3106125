package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astralmap/astralmap/internal/ailink/content"
	"github.com/astralmap/astralmap/internal/ailink/driver"
)

func userMessage(text string) []content.Message {
	return []content.Message{{Role: "user", Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: text}}}}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRequiresModel(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{Messages: userMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, 0.7, payload["temperature"])
		format := payload["response_format"].(map[string]any)
		require.Equal(t, "json_schema", format["type"])
		spec := format["json_schema"].(map[string]any)
		require.Equal(t, "astral_map", spec["name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"numerology\":\"ok\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	temp := 0.7
	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "test-model",
		Messages: []content.Message{
			{Role: "system", Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: "sys"}}},
			{Role: "user", Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: "usr"}}},
		},
		Temperature: &temp,
		ResponseFormat: &driver.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &driver.JSONSchema{Name: "astral_map", Strict: true, Schema: map[string]any{"type": "object"}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 3, resp.Usage.TotalTokens)
	require.Len(t, resp.Content, 1)
	require.True(t, strings.Contains(resp.Content[0].Text, "numerology"))
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.Error(t, err)
	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	require.Contains(t, err.Error(), "status 401")
	require.Contains(t, err.Error(), "nope")
}

func TestClientSurfacesRefusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"","refusal":"cannot help"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot help")
}

func TestBuildChatRequestMessageBodies(t *testing.T) {
	twoParts := content.Message{Role: "user", Content: []content.ContentBlock{
		{Type: content.ContentTypeText, Text: "a"},
		{Type: content.ContentTypeText, Text: "b"},
	}}
	payload, err := buildChatRequest(&driver.Request{Model: "m", Messages: append(userMessage("solo"), twoParts)})
	require.NoError(t, err)
	require.Equal(t, "solo", payload.Messages[0].Content)
	require.Equal(t, []wirePart{{Type: "text", Text: "a"}, {Type: "text", Text: "b"}}, payload.Messages[1].Content)
	require.Nil(t, payload.ResponseFormat)

	_, err = buildChatRequest(&driver.Request{Model: "m"})
	require.ErrorContains(t, err, "messages")

	image := content.Message{Role: "user", Content: []content.ContentBlock{{Type: "image"}}}
	_, err = buildChatRequest(&driver.Request{Model: "m", Messages: []content.Message{image}})
	require.ErrorContains(t, err, "unsupported content type")
}
