package openai

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/astralmap/astralmap/internal/ailink/content"
	"github.com/astralmap/astralmap/internal/ailink/driver"
	"github.com/astralmap/astralmap/internal/ailink/encode"
)

const defaultImageModel = "gpt-image-1"

type imageGenerationRequest struct {
	Model        string `json:"model,omitempty"`
	Prompt       string `json:"prompt"`
	N            int    `json:"n,omitempty"`
	Size         string `json:"size,omitempty"`
	Quality      string `json:"quality,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	// DALL·E models only return base64 when asked to.
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageGenerationResponse struct {
	Created      int64  `json:"created"`
	OutputFormat string `json:"output_format,omitempty"`
	Size         string `json:"size,omitempty"`
	Quality      string `json:"quality,omitempty"`
	Data         []struct {
		B64JSON string `json:"b64_json,omitempty"`
		URL     string `json:"url,omitempty"`
	} `json:"data"`
}

// aspectSizes maps aspect ratios onto the fixed sizes the images API accepts.
var aspectSizes = map[string]string{
	"1:1":  "1024x1024",
	"3:2":  "1536x1024",
	"16:9": "1536x1024",
	"2:3":  "1024x1536",
	"9:16": "1024x1536",
}

// GenerateImage calls images/generations and returns decoded image bytes.
// Results that only carry a URL come back as text blocks.
func (c *Client) GenerateImage(ctx context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	payload, format, err := buildImageRequest(req)
	if err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, "/images/generations", payload.Model, payload)
	if err != nil {
		return nil, err
	}

	var parsed imageGenerationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.OutputFormat != "" {
		format = parsed.OutputFormat
	}

	images, err := imageBlocks(parsed, "image/"+format)
	if err != nil {
		return nil, err
	}
	return &driver.ImageResponse{
		Created:      parsed.Created,
		OutputFormat: parsed.OutputFormat,
		Size:         parsed.Size,
		Quality:      parsed.Quality,
		Images:       images,
	}, nil
}

// buildImageRequest validates req and returns the payload plus the bare
// output format ("png" when unset). DALL-E models take response_format
// instead of output_format and have no 1536 sizes.
func buildImageRequest(req *driver.ImageRequest) (imageGenerationRequest, string, error) {
	if req == nil {
		return imageGenerationRequest{}, "", fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return imageGenerationRequest{}, "", fmt.Errorf("prompt is required")
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	if count > 10 {
		return imageGenerationRequest{}, "", fmt.Errorf("count must be between 1 and 10")
	}

	payload := imageGenerationRequest{
		Model:   cmp.Or(strings.TrimSpace(req.Model), defaultImageModel),
		Prompt:  req.Prompt,
		N:       count,
		Size:    cmp.Or(strings.TrimSpace(req.Size), aspectSizes[strings.TrimSpace(req.AspectRatio)]),
		Quality: strings.TrimSpace(req.Quality),
	}
	format := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.OutputFormat), "image/"))

	if strings.HasPrefix(payload.Model, "dall-e") {
		payload.ResponseFormat = "b64_json"
		if payload.Size == "1536x1024" || payload.Size == "1024x1536" {
			payload.Size = "1024x1024"
		}
	} else {
		payload.OutputFormat = format
	}
	return payload, cmp.Or(format, "png"), nil
}

func imageBlocks(parsed imageGenerationResponse, mime string) ([]content.ContentBlock, error) {
	blocks := make([]content.ContentBlock, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		switch {
		case strings.TrimSpace(item.B64JSON) != "":
			decoded, err := encode.DecodeBase64String(item.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("decode image base64: %w", err)
			}
			blocks = append(blocks, content.ContentBlock{Type: content.ContentType(mime), Data: decoded})
		case strings.TrimSpace(item.URL) != "":
			blocks = append(blocks, content.ContentBlock{Type: content.ContentTypeText, Text: item.URL})
		}
	}
	return blocks, nil
}
