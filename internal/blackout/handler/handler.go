// Package handler exposes the blackout window endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"beacon/internal/blackout"
	"beacon/internal/platform/middleware"
	"beacon/internal/transport/http/shared"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// Service defines the blackout operations behind the endpoints.
type Service interface {
	GetActiveBlackout(ctx context.Context, familyID id.FamilyID) (*blackout.Blackout, error)
	ExtendBlackoutPeriod(ctx context.Context, familyID id.FamilyID, additionalHours int) (*blackout.Blackout, error)
}

// Handler handles blackout endpoints. Every route requires an operator; the
// family apps never learn a blackout exists.
type Handler struct {
	logger       *slog.Logger
	blackouts    Service
	jwtValidator middleware.JWTValidator
}

// New creates a new blackout Handler.
func New(blackouts Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		blackouts:    blackouts,
		jwtValidator: jwtValidator,
	}
}

// Register registers the blackout routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(operator chi.Router) {
		operator.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		operator.Get("/families/{familyID}/blackout", h.handleGetActiveBlackout)
		operator.Post("/families/{familyID}/blackout/extend", h.handleExtendBlackout)
	})
}

// handleGetActiveBlackout returns the family's active blackout, if any.
func (h *Handler) handleGetActiveBlackout(w http.ResponseWriter, r *http.Request) {
	b, err := h.blackouts.GetActiveBlackout(r.Context(), id.FamilyID(chi.URLParam(r, "familyID")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, b)
}

type extendBlackoutRequest struct {
	AdditionalHours int `json:"additional_hours"`
}

// handleExtendBlackout extends the family's active blackout window.
func (h *Handler) handleExtendBlackout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req extendBlackoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	b, err := h.blackouts.ExtendBlackoutPeriod(ctx, id.FamilyID(chi.URLParam(r, "familyID")), req.AdditionalHours)
	if err != nil {
		h.logger.WarnContext(ctx, "blackout extension rejected",
			"request_id", middleware.GetRequestID(ctx),
			"operator_id", middleware.GetOperatorID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, b)
}
