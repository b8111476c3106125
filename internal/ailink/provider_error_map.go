package ailink

import (
	"context"
	"errors"
	"strings"

	"github.com/astralmap/astralmap/internal/ailink/driver"
)

const (
	CodeProviderTimeout     = "AILINK_PROVIDER_TIMEOUT"
	CodeProviderAuth        = "AILINK_PROVIDER_AUTH"
	CodeProviderRateLimit   = "AILINK_PROVIDER_RATE_LIMIT"
	CodeProviderUnavailable = "AILINK_PROVIDER_UNAVAILABLE"
	CodeProviderBadRequest  = "AILINK_PROVIDER_BAD_REQUEST"
	CodeProviderError       = "AILINK_PROVIDER_ERROR"
	CodeInvalidResponse     = "AILINK_INVALID_RESPONSE"
	CodeNotConfigured       = "AILINK_NOT_CONFIGURED"
)

// ClassifyError maps any ailink or driver error to a Failure. Failures pass
// through unchanged.
func ClassifyError(err error) *Failure {
	if err == nil {
		return nil
	}
	var failure *Failure
	if errors.As(err, &failure) && failure != nil {
		return failure
	}
	return mapProviderError(err)
}

func mapProviderError(err error) *Failure {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Code: CodeProviderTimeout, Message: "provider request timed out", Err: err}
	}

	var rawErr *RawResponseError
	if errors.As(err, &rawErr) && rawErr != nil {
		return &Failure{Code: CodeInvalidResponse, Message: "provider returned an invalid response", Details: rawErr.Error(), Err: err}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := strings.TrimSpace(perr.Message)
		switch {
		case status == 401 || status == 403:
			return &Failure{Code: CodeProviderAuth, Message: "provider authentication failed", Details: details, Err: err}
		case status == 429:
			return &Failure{Code: CodeProviderRateLimit, Message: "provider rate limited", Details: details, Err: err}
		case status == 504:
			return &Failure{Code: CodeProviderTimeout, Message: "provider request timed out", Details: details, Err: err}
		case status >= 500 && status <= 599:
			return &Failure{Code: CodeProviderUnavailable, Message: "provider unavailable", Details: details, Err: err}
		case status >= 400 && status <= 499:
			return &Failure{Code: CodeProviderBadRequest, Message: "provider rejected request", Details: details, Err: err}
		default:
			return &Failure{Code: CodeProviderError, Message: "provider request failed", Details: details, Err: err}
		}
	}

	return &Failure{Code: CodeProviderError, Message: "provider request failed", Details: err.Error(), Err: err}
}
