package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/astralmap/astralmap/internal/errors"
)

// MaxBodyBytes caps API request bodies.
const MaxBodyBytes = 1 << 20

// decodeJSON reads exactly one JSON object into T. Unknown fields and
// trailing data are rejected.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var dst T
	if r.Body == nil || r.Body == http.NoBody {
		return dst, apperrors.NewInvalidInputError("request body is required")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return dst, apperrors.NewInvalidInputError("request body too large")
		case errors.Is(err, io.EOF):
			return dst, apperrors.NewInvalidInputError("request body is required")
		default:
			return dst, apperrors.NewInvalidInputError("invalid JSON: " + err.Error())
		}
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return dst, apperrors.NewInvalidInputError("unexpected trailing data")
	}
	return dst, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
