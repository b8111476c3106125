package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/astralmap/astralmap/internal/ailink/content"
	"github.com/astralmap/astralmap/internal/ailink/driver"
)

func toDriverResponse(resp *genai.GenerateContentResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, fmt.Errorf("empty response candidates")
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
	}

	response := &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: text.String()}},
		FinishReason: strings.ToLower(string(candidate.FinishReason)),
	}
	if usage := resp.UsageMetadata; usage != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return response, nil
}

// trace records SDK calls in the shared NDJSON trace. Image payloads are not
// recorded.
func trace(endpoint, model string, config any, resp *genai.GenerateContentResponse, err error, duration time.Duration) {
	if !driver.IsTracingEnabled() {
		return
	}
	entry := driver.TraceEntry{
		Driver:     driverName,
		Endpoint:   endpoint,
		Method:     "SDK",
		Model:      model,
		DurationMs: duration.Milliseconds(),
	}
	if body, marshalErr := json.Marshal(config); marshalErr == nil {
		entry.RequestBody = body
	}
	if resp != nil {
		if body, marshalErr := json.Marshal(resp); marshalErr == nil {
			entry.Response = body
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}
	driver.Trace(entry)
}
