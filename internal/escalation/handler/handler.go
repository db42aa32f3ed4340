// Package handler exposes the crisis partner escalation endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"beacon/internal/escalation"
	"beacon/internal/escalation/service"
	"beacon/internal/platform/middleware"
	"beacon/internal/transport/http/shared"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// Service defines the escalation operations behind the endpoints.
type Service interface {
	RecordEscalation(ctx context.Context, params service.RecordParams) (*escalation.SignalEscalation, error)
	GetEscalation(ctx context.Context, escalationID id.EscalationID) (*escalation.SignalEscalation, error)
	ListEscalations(ctx context.Context, signalID id.SignalID) ([]*escalation.SignalEscalation, error)
	SealEscalation(ctx context.Context, escalationID id.EscalationID, sealedBy id.OperatorID) (*escalation.SignalEscalation, error)
}

// Handler handles escalation endpoints. Every route requires an operator.
type Handler struct {
	logger       *slog.Logger
	escalations  Service
	jwtValidator middleware.JWTValidator
}

// New creates a new escalation Handler.
func New(escalations Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		escalations:  escalations,
		jwtValidator: jwtValidator,
	}
}

// Register registers the escalation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(operator chi.Router) {
		operator.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		operator.Post("/signals/{signalID}/escalations", h.handleRecordEscalation)
		operator.Get("/signals/{signalID}/escalations", h.handleListEscalations)
		operator.Get("/escalations/{escalationID}", h.handleGetEscalation)
		operator.Post("/escalations/{escalationID}/seal", h.handleSealEscalation)
	})
}

type escalationResponse struct {
	ID           id.EscalationID   `json:"id"`
	SignalID     id.SignalID       `json:"signal_id"`
	PartnerID    id.PartnerID      `json:"partner_id"`
	Type         id.EscalationType `json:"type"`
	Jurisdiction id.Jurisdiction   `json:"jurisdiction"`
	Details      string            `json:"details"`
	Sealed       bool              `json:"sealed"`
	SealedAt     *time.Time        `json:"sealed_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toEscalationResponse(esc *escalation.SignalEscalation) escalationResponse {
	return escalationResponse{
		ID:           esc.ID,
		SignalID:     esc.SignalID,
		PartnerID:    esc.PartnerID,
		Type:         esc.Type,
		Jurisdiction: esc.Jurisdiction,
		Details:      esc.Details,
		Sealed:       esc.Sealed,
		SealedAt:     esc.SealedAt,
		CreatedAt:    esc.CreatedAt,
	}
}

type recordEscalationRequest struct {
	PartnerID    string `json:"partner_id"`
	Type         string `json:"type"`
	Jurisdiction string `json:"jurisdiction"`
	Details      string `json:"details"`
}

// handleRecordEscalation records a crisis partner's escalation of a signal.
func (h *Handler) handleRecordEscalation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req recordEscalationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	escType, err := id.ParseEscalationType(req.Type)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	esc, err := h.escalations.RecordEscalation(ctx, service.RecordParams{
		SignalID:     id.SignalID(chi.URLParam(r, "signalID")),
		PartnerID:    id.PartnerID(req.PartnerID),
		Type:         escType,
		Jurisdiction: id.Jurisdiction(req.Jurisdiction),
		Details:      req.Details,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "escalation rejected",
			"request_id", requestID,
			"partner_id", req.PartnerID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toEscalationResponse(esc))
}

// handleListEscalations lists every escalation recorded against a signal.
func (h *Handler) handleListEscalations(w http.ResponseWriter, r *http.Request) {
	escalations, err := h.escalations.ListEscalations(r.Context(), id.SignalID(chi.URLParam(r, "signalID")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	responses := make([]escalationResponse, 0, len(escalations))
	for _, esc := range escalations {
		responses = append(responses, toEscalationResponse(esc))
	}
	shared.WriteJSON(w, http.StatusOK, responses)
}

// handleGetEscalation returns a single escalation record.
func (h *Handler) handleGetEscalation(w http.ResponseWriter, r *http.Request) {
	esc, err := h.escalations.GetEscalation(r.Context(), id.EscalationID(chi.URLParam(r, "escalationID")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEscalationResponse(esc))
}

// handleSealEscalation seals an escalation under the operator's identity.
func (h *Handler) handleSealEscalation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID := middleware.GetOperatorID(ctx)

	esc, err := h.escalations.SealEscalation(ctx, id.EscalationID(chi.URLParam(r, "escalationID")), operatorID)
	if err != nil {
		h.logger.WarnContext(ctx, "seal rejected",
			"request_id", middleware.GetRequestID(ctx),
			"operator_id", operatorID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEscalationResponse(esc))
}
