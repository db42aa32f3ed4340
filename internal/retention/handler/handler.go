// Package handler exposes the retention and legal hold endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"beacon/internal/platform/middleware"
	"beacon/internal/retention"
	"beacon/internal/transport/http/shared"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// Service defines the retention operations behind the endpoints.
type Service interface {
	GetRetentionStatus(ctx context.Context, signalID id.SignalID) (*retention.SignalRetentionStatus, error)
	CanDeleteSignal(ctx context.Context, signalID id.SignalID) (bool, string, error)
	PlaceLegalHold(ctx context.Context, signalID id.SignalID, reason string, placedBy id.OperatorID) (*retention.SignalRetentionStatus, error)
	RemoveLegalHold(ctx context.Context, signalID id.SignalID, authorizationID id.OperatorID) (*retention.SignalRetentionStatus, error)
}

// Handler handles retention endpoints. Every route requires an operator.
type Handler struct {
	logger       *slog.Logger
	retention    Service
	jwtValidator middleware.JWTValidator
}

// New creates a new retention Handler.
func New(retentionSvc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		retention:    retentionSvc,
		jwtValidator: jwtValidator,
	}
}

// Register registers the retention routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(operator chi.Router) {
		operator.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		operator.Get("/signals/{signalID}/retention", h.handleGetRetentionStatus)
		operator.Get("/signals/{signalID}/deletable", h.handleCanDelete)
		operator.Post("/signals/{signalID}/holds", h.handlePlaceLegalHold)
		operator.Delete("/signals/{signalID}/holds", h.handleRemoveLegalHold)
	})
}

type retentionStatusResponse struct {
	SignalID           id.SignalID     `json:"signal_id"`
	Jurisdiction       id.Jurisdiction `json:"jurisdiction"`
	RetentionStartDate time.Time       `json:"retention_start_date"`
	MinimumRetainUntil time.Time       `json:"minimum_retain_until"`
	LegalHold          bool            `json:"legal_hold"`
	LegalHoldReason    *string         `json:"legal_hold_reason,omitempty"`
	HoldPlacedAt       *time.Time      `json:"hold_placed_at,omitempty"`
	HoldPlacedBy       *id.OperatorID  `json:"hold_placed_by,omitempty"`
}

func toRetentionResponse(status *retention.SignalRetentionStatus) retentionStatusResponse {
	return retentionStatusResponse{
		SignalID:           status.SignalID,
		Jurisdiction:       status.Jurisdiction,
		RetentionStartDate: status.RetentionStartDate,
		MinimumRetainUntil: status.MinimumRetainUntil,
		LegalHold:          status.LegalHold,
		LegalHoldReason:    status.LegalHoldReason,
		HoldPlacedAt:       status.HoldPlacedAt,
		HoldPlacedBy:       status.HoldPlacedBy,
	}
}

// handleGetRetentionStatus returns the retention record for a signal.
func (h *Handler) handleGetRetentionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.retention.GetRetentionStatus(r.Context(), id.SignalID(chi.URLParam(r, "signalID")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRetentionResponse(status))
}

type deletableResponse struct {
	Deletable bool   `json:"deletable"`
	Reason    string `json:"reason,omitempty"`
}

// handleCanDelete reports whether the retention gate would allow deletion.
func (h *Handler) handleCanDelete(w http.ResponseWriter, r *http.Request) {
	deletable, reason, err := h.retention.CanDeleteSignal(r.Context(), id.SignalID(chi.URLParam(r, "signalID")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, deletableResponse{Deletable: deletable, Reason: reason})
}

type placeHoldRequest struct {
	Reason string `json:"reason"`
}

// handlePlaceLegalHold places a legal hold under the operator's identity.
func (h *Handler) handlePlaceLegalHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID := middleware.GetOperatorID(ctx)

	var req placeHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	status, err := h.retention.PlaceLegalHold(ctx, id.SignalID(chi.URLParam(r, "signalID")), req.Reason, operatorID)
	if err != nil {
		h.logger.WarnContext(ctx, "legal hold rejected",
			"request_id", middleware.GetRequestID(ctx),
			"operator_id", operatorID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toRetentionResponse(status))
}

// handleRemoveLegalHold lifts an active legal hold.
func (h *Handler) handleRemoveLegalHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID := middleware.GetOperatorID(ctx)

	status, err := h.retention.RemoveLegalHold(ctx, id.SignalID(chi.URLParam(r, "signalID")), operatorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRetentionResponse(status))
}
