package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/numerology"
	"github.com/astralmap/astralmap/internal/observability"
	"github.com/astralmap/astralmap/internal/server/middleware"
)

// Engine is the domain surface the API handlers call.
type Engine interface {
	Numbers(req core.NumerologyRequest) (numerology.Bundle, error)
	AstralMap(ctx context.Context, subject core.Subject) (*core.AstralMap, error)
}

// API serves the numerology and astral map endpoints.
type API struct {
	Engine Engine
}

// NumerologyResponse wraps a derived bundle.
type NumerologyResponse struct {
	Numbers numerology.Bundle `json:"numbers"`
}

// Numerology handles POST /api/numerology.
func (a *API) Numerology(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[core.NumerologyRequest](w, r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	bundle, err := a.Engine.Numbers(req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, NumerologyResponse{Numbers: bundle})
}

// AstralMap handles POST /api/astral-map. The handler blocks until both AI
// steps finish or the request context ends.
func (a *API) AstralMap(w http.ResponseWriter, r *http.Request) {
	subject, err := decodeJSON[core.Subject](w, r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	report, err := a.Engine.AstralMap(r.Context(), subject)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("astral map generated",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("report_id", report.Provenance.ReportID),
			zap.String("provider", report.Provenance.Provider))
	}

	writeJSON(w, http.StatusOK, report)
}
