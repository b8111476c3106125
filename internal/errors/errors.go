// Package errors maps astralmap failures onto gofulmen error envelopes and
// the JSON error body served by the HTTP API.
package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/astralmap/astralmap/internal/ailink"
	"github.com/astralmap/astralmap/internal/numerology"
	"github.com/astralmap/astralmap/internal/server/middleware"
)

// Error codes surfaced in HTTP envelopes and CLI diagnostics.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeConfigInvalid    = "CONFIG_INVALID"
)

// Codes missing here answer 500.
var statusByCode = map[string]int{
	CodeInvalidInput:     http.StatusBadRequest,
	CodeValidationFailed: http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeMethodNotAllowed: http.StatusMethodNotAllowed,
	CodeTimeout:          http.StatusGatewayTimeout,
	CodeExternalService:  http.StatusBadGateway,
	CodeUnavailable:      http.StatusServiceUnavailable,
}

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	env, _ := errors.NewErrorEnvelope(CodeInternal, message).WithSeverity(errors.SeverityHigh)
	return env
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	env, _ := errors.NewErrorEnvelope(CodeConfigInvalid, message).WithSeverity(errors.SeverityHigh)
	return env
}

// Wrap builds an envelope for code that carries the request correlation ID
// and, when err is non-nil, its text under "wrapped_error".
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := correlationID(ctx)
	env := errors.NewErrorEnvelope(code, message).WithCorrelationID(id).WithTraceID(id)
	if err == nil {
		return env
	}
	if withCause, ctxErr := env.WithContext(map[string]interface{}{"wrapped_error": err.Error()}); ctxErr == nil {
		env = withCause
	}
	return env
}

// FromError maps err to an envelope:
//   - an envelope anywhere in the chain is reused
//   - numerology.ValidationError becomes VALIDATION_FAILED with field details
//   - an ailink.Failure becomes TIMEOUT, SERVICE_UNAVAILABLE or EXTERNAL_SERVICE_ERROR
//   - context.DeadlineExceeded becomes TIMEOUT
//
// Anything else is INTERNAL_ERROR.
func FromError(ctx context.Context, err error) *errors.ErrorEnvelope {
	if err == nil {
		env, _ := Wrap(ctx, CodeInternal, nil, "unexpected nil error").WithSeverity(errors.SeverityCritical)
		return env
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return EnsureCorrelationID(envelope, ctx)
	}

	var invalid *numerology.ValidationError
	if stderrors.As(err, &invalid) {
		details := map[string]interface{}{"field": invalid.Field, "reason": invalid.Reason}
		if invalid.Value != "" {
			details["value"] = invalid.Value
		}
		return Wrap(ctx, CodeValidationFailed, nil, invalid.Error()).WithDetails(details)
	}

	var failure *ailink.Failure
	if stderrors.As(err, &failure) && failure != nil {
		code := CodeExternalService
		if failure.Timeout() {
			code = CodeTimeout
		} else if failure.Code == ailink.CodeNotConfigured {
			code = CodeUnavailable
		}
		env, _ := Wrap(ctx, code, nil, err.Error()).
			WithDetails(map[string]interface{}{"provider_code": failure.Code}).
			WithSeverity(errors.SeverityMedium)
		return env
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return Wrap(ctx, CodeTimeout, err, "request timed out")
	}

	env, _ := Wrap(ctx, CodeInternal, err, "unexpected error").WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID fills in a missing correlation ID from the request
// context, or a generated fallback.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	if id := requestID(ctx); id != "" {
		return envelope.WithCorrelationID(id)
	}
	return envelope.WithCorrelationID("fallback-" + errors.GenerateCorrelationID())
}

// HTTPStatusFromEnvelope resolves the HTTP status for an envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the HTTP status for an error code.
func HTTPStatusFromCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return middleware.GetRequestID(ctx)
}

// correlationID prefers the request ID and otherwise mints a UUID.
func correlationID(ctx context.Context) string {
	if id := requestID(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}
