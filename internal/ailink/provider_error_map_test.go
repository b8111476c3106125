package ailink

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astralmap/astralmap/internal/ailink/driver"
)

func TestMapProviderErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantCode   string
	}{
		{"auth", 401, CodeProviderAuth},
		{"forbidden", 403, CodeProviderAuth},
		{"rate", 429, CodeProviderRateLimit},
		{"bad", 400, CodeProviderBadRequest},
		{"unavail", 503, CodeProviderUnavailable},
		{"gateway timeout", 504, CodeProviderTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &driver.ProviderError{Provider: "gemini", StatusCode: tc.statusCode, Message: "boom"}
			mapped := mapProviderError(err)
			require.NotNil(t, mapped)
			require.Equal(t, tc.wantCode, mapped.Code)
			require.Equal(t, "boom", mapped.Details)
		})
	}
}

func TestClassifyError(t *testing.T) {
	require.Nil(t, ClassifyError(nil))

	wrapped := fmt.Errorf("generate: %w", context.DeadlineExceeded)
	failure := ClassifyError(wrapped)
	require.True(t, failure.Timeout())
	require.True(t, errors.Is(failure, context.DeadlineExceeded))

	original := &Failure{Code: CodeNotConfigured, Message: "no providers"}
	require.Same(t, original, ClassifyError(fmt.Errorf("x: %w", original)))

	raw := &RawResponseError{Err: errors.New("response schema validation failed"), Raw: []byte(`{}`)}
	require.Equal(t, CodeInvalidResponse, ClassifyError(raw).Code)

	require.Equal(t, CodeProviderError, ClassifyError(errors.New("dial tcp")).Code)
}
