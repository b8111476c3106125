package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/ailink"
)

// exitMeta is the subset of the foundry exit catalog entry we report.
type exitMeta struct {
	code        int
	name        string
	description string
	category    string
}

func lookupExit(code foundry.ExitCode) (exitMeta, bool) {
	info, ok := foundry.GetExitCodeInfo(code)
	if !ok {
		return exitMeta{code: int(code)}, false
	}
	return exitMeta{code: info.Code, name: info.Name, description: info.Description, category: info.Category}, true
}

// ExitCodeFor picks the semantic exit code for a failed command. Provider
// failures are reported as an unavailable external service.
func ExitCodeFor(err error) foundry.ExitCode {
	var failure *ailink.Failure
	if stderrors.As(err, &failure) {
		return foundry.ExitExternalServiceUnavailable
	}
	return foundry.ExitFailure
}

// ExitWithCode logs msg and err with the exit code metadata and exits. A nil
// logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	meta, known := lookupExit(exitCode)
	if logger == nil || !known {
		writeFatal(os.Stderr, meta, msg, err)
	} else {
		logger.Error(msg, exitFields(meta, err)...)
	}
	os.Exit(meta.code)
}

// ExitWithCodeStderr is ExitWithCode for failures before a logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}

func exitFields(meta exitMeta, err error) []zap.Field {
	fields := []zap.Field{
		zap.Int("exit_code", meta.code),
		zap.String("exit_name", meta.name),
		zap.String("exit_description", meta.description),
		zap.String("exit_category", meta.category),
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if len(envelope.Context) > 0 {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if original, ok := envelope.Original.(error); ok && original != nil {
			err = original
		}
	}
	return append(fields, zap.Error(err))
}

func writeFatal(w io.Writer, meta exitMeta, msg string, err error) {
	var envelope *errors.ErrorEnvelope
	switch {
	case err == nil:
		_, _ = fmt.Fprintf(w, "FATAL: %s\n", msg)
	case stderrors.As(err, &envelope) && envelope != nil:
		_, _ = fmt.Fprintf(w, "FATAL: %s [%s]: %s (correlation: %s)\n", msg, envelope.Code, envelope.Message, envelope.CorrelationID)
		if original, ok := envelope.Original.(error); ok && original != nil {
			_, _ = fmt.Fprintf(w, "Underlying error: %v\n", original)
		}
	default:
		_, _ = fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	}

	if meta.name == "" {
		_, _ = fmt.Fprintf(w, "Exit Code: %d\n", meta.code)
		return
	}
	_, _ = fmt.Fprintf(w, "Exit Code: %d (%s) - %s\n", meta.code, meta.name, meta.description)
}
