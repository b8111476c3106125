package openai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/astralmap/astralmap/internal/ailink/content"
	"github.com/astralmap/astralmap/internal/ailink/driver"
)

// chatRequest is the /chat/completions body.
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []wireMessage `json:"messages"`
	ResponseFormat *wireFormat   `json:"response_format,omitempty"`
	Temperature    *float64      `json:"temperature,omitempty"`
	MaxTokens      *int          `json:"max_completion_tokens,omitempty"`
}

// wireMessage content is either a string or a []wirePart.
type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type wirePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireFormat struct {
	Type       string      `json:"type"`
	JSONSchema *wireSchema `json:"json_schema,omitempty"`
}

type wireSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

func buildChatRequest(req *driver.Request) (*chatRequest, error) {
	switch {
	case req == nil:
		return nil, errors.New("request is required")
	case strings.TrimSpace(req.Model) == "":
		return nil, errors.New("model is required")
	case len(req.Messages) == 0:
		return nil, errors.New("messages are required")
	}

	out := &chatRequest{
		Model:          req.Model,
		Messages:       make([]wireMessage, len(req.Messages)),
		ResponseFormat: toWireFormat(req.ResponseFormat),
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	}
	for i, msg := range req.Messages {
		body, err := messageBody(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out.Messages[i] = wireMessage{Role: msg.Role, Content: body}
	}
	return out, nil
}

func toWireFormat(rf *driver.ResponseFormat) *wireFormat {
	if rf == nil {
		return nil
	}
	wf := &wireFormat{Type: rf.Type}
	if s := rf.JSONSchema; s != nil {
		wf.JSONSchema = &wireSchema{Name: s.Name, Strict: s.Strict, Schema: s.Schema}
	}
	return wf
}

// messageBody collapses a single text block to a plain string. Only text
// blocks are accepted.
func messageBody(blocks []content.ContentBlock) (any, error) {
	parts := make([]wirePart, 0, len(blocks))
	for _, block := range blocks {
		if block.Type != content.ContentTypeText {
			return nil, fmt.Errorf("unsupported content type: %s", block.Type)
		}
		parts = append(parts, wirePart{Type: "text", Text: block.Text})
	}
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0].Text, nil
	}
	return parts, nil
}
