// Package handler exposes the legal request endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"beacon/internal/legal"
	"beacon/internal/legal/service"
	"beacon/internal/platform/middleware"
	"beacon/internal/transport/http/shared"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// Service defines the legal request operations behind the endpoints.
type Service interface {
	LogLegalRequest(ctx context.Context, params service.LogParams) (*legal.LegalRequest, error)
	GetLegalRequest(ctx context.Context, requestID id.RequestID) (*legal.LegalRequest, error)
	ApproveLegalRequest(ctx context.Context, requestID id.RequestID, reviewedBy id.OperatorID) (*legal.LegalRequest, error)
	DenyLegalRequest(ctx context.Context, requestID id.RequestID, reviewedBy id.OperatorID, reason string) (*legal.LegalRequest, error)
	FulfillLegalRequest(ctx context.Context, requestID id.RequestID, fulfilledBy id.OperatorID) (*legal.FulfillmentResult, error)
}

// Handler handles legal request endpoints. Every route requires an operator.
type Handler struct {
	logger       *slog.Logger
	requests     Service
	jwtValidator middleware.JWTValidator
}

// New creates a new legal request Handler.
func New(requests Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		requests:     requests,
		jwtValidator: jwtValidator,
	}
}

// Register registers the legal request routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(operator chi.Router) {
		operator.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		operator.Post("/legal-requests", h.handleLogRequest)
		operator.Get("/legal-requests/{requestID}", h.handleGetRequest)
		operator.Post("/legal-requests/{requestID}/approve", h.handleApproveRequest)
		operator.Post("/legal-requests/{requestID}/deny", h.handleDenyRequest)
		operator.Post("/legal-requests/{requestID}/fulfill", h.handleFulfillRequest)
	})
}

type logRequestRequest struct {
	Type              string   `json:"type"`
	RequestingAgency  string   `json:"requesting_agency"`
	Jurisdiction      string   `json:"jurisdiction"`
	DocumentReference string   `json:"document_reference"`
	SignalIDs         []string `json:"signal_ids"`
}

// handleLogRequest logs an incoming legal request under the operator's
// identity.
func (h *Handler) handleLogRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID := middleware.GetOperatorID(ctx)

	var req logRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reqType, err := id.ParseLegalRequestType(req.Type)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	signalIDs := make([]id.SignalID, 0, len(req.SignalIDs))
	for _, raw := range req.SignalIDs {
		signalIDs = append(signalIDs, id.SignalID(raw))
	}

	logged, err := h.requests.LogLegalRequest(ctx, service.LogParams{
		Type:              reqType,
		RequestingAgency:  req.RequestingAgency,
		Jurisdiction:      id.Jurisdiction(req.Jurisdiction),
		DocumentReference: req.DocumentReference,
		SignalIDs:         signalIDs,
		LoggedBy:          operatorID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "legal request rejected",
			"request_id", middleware.GetRequestID(ctx),
			"operator_id", operatorID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, logged)
}

// handleGetRequest returns one legal request.
func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.requests.GetLegalRequest(r.Context(), id.RequestID(chi.URLParam(r, "requestID")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, request)
}

// handleApproveRequest approves a pending request.
func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	request, err := h.requests.ApproveLegalRequest(ctx, id.RequestID(chi.URLParam(r, "requestID")), middleware.GetOperatorID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, request)
}

type denyRequestRequest struct {
	Reason string `json:"reason"`
}

// handleDenyRequest denies a pending request with a reason.
func (h *Handler) handleDenyRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req denyRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	request, err := h.requests.DenyLegalRequest(ctx, id.RequestID(chi.URLParam(r, "requestID")), middleware.GetOperatorID(ctx), req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, request)
}

// handleFulfillRequest attempts fulfillment. A refusal is a 200 with
// success=false; the request itself is untouched.
func (h *Handler) handleFulfillRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID := middleware.GetOperatorID(ctx)

	result, err := h.requests.FulfillLegalRequest(ctx, id.RequestID(chi.URLParam(r, "requestID")), operatorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "fulfillment failed",
			"request_id", middleware.GetRequestID(ctx),
			"operator_id", operatorID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}
