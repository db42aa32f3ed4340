// Package handler exposes the signal ingestion and triage endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"beacon/internal/ingest"
	"beacon/internal/pipeline"
	"beacon/internal/platform/middleware"
	"beacon/internal/transport/http/shared"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// Isolator runs the end-to-end isolation flow for a raised signal.
type Isolator interface {
	IsolateSignal(ctx context.Context, params pipeline.IsolateParams) (*pipeline.IsolateResult, error)
}

// Service defines the signal operations behind the operator endpoints.
type Service interface {
	GetSignal(ctx context.Context, signalID id.SignalID) (*ingest.SafetySignal, error)
	TransitionStatus(ctx context.Context, signalID id.SignalID, next id.SignalStatus) (*ingest.SafetySignal, error)
	ProcessOfflineQueue(ctx context.Context, childID id.ChildID) (int, error)
}

// Handler handles signal endpoints.
type Handler struct {
	logger       *slog.Logger
	isolator     Isolator
	signals      Service
	jwtValidator middleware.JWTValidator
}

// New creates a new signal Handler.
func New(isolator Isolator, signals Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		isolator:     isolator,
		signals:      signals,
		jwtValidator: jwtValidator,
	}
}

// Register registers the signal routes with the chi router. The raise endpoint
// is deliberately outside operator auth: a child's device authenticates at the
// gateway, and a signal must never be dropped over an expired operator token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/signals", h.handleRaiseSignal)

	r.Group(func(operator chi.Router) {
		operator.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		operator.Get("/signals/{signalID}", h.handleGetSignal)
		operator.Post("/signals/{signalID}/status", h.handleTransitionStatus)
		operator.Post("/children/{childID}/offline-queue/process", h.handleProcessOfflineQueue)
	})
}

type raiseSignalRequest struct {
	ChildID       string `json:"child_id"`
	FamilyID      string `json:"family_id"`
	TriggerMethod string `json:"trigger_method"`
	DeviceID      string `json:"device_id"`
	UserAgent     string `json:"user_agent"`
	IsOffline     bool   `json:"is_offline"`
	Message       string `json:"message"`
	Jurisdiction  string `json:"jurisdiction"`
}

type raiseSignalResponse struct {
	SignalID    id.SignalID     `json:"signal_id"`
	Status      id.SignalStatus `json:"status"`
	BlackoutEnd time.Time       `json:"blackout_end"`
}

type signalResponse struct {
	ID            id.SignalID      `json:"id"`
	ChildID       id.ChildID       `json:"child_id"`
	TriggerMethod id.TriggerMethod `json:"trigger_method"`
	Platform      id.Platform      `json:"platform"`
	Status        id.SignalStatus  `json:"status"`
	TriggeredAt   time.Time        `json:"triggered_at"`
	DeliveredAt   *time.Time       `json:"delivered_at,omitempty"`
	IsOffline     bool             `json:"is_offline"`
}

func toSignalResponse(signal *ingest.SafetySignal) signalResponse {
	return signalResponse{
		ID:            signal.ID,
		ChildID:       signal.ChildID,
		TriggerMethod: signal.TriggerMethod,
		Platform:      signal.Platform,
		Status:        signal.Status,
		TriggeredAt:   signal.TriggeredAt,
		DeliveredAt:   signal.DeliveredAt,
		IsOffline:     signal.IsOffline,
	}
}

// handleRaiseSignal runs the isolation flow for a freshly raised signal.
func (h *Handler) handleRaiseSignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req raiseSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid raise signal request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.isolator.IsolateSignal(ctx, pipeline.IsolateParams{
		ChildID:       id.ChildID(req.ChildID),
		FamilyID:      id.FamilyID(req.FamilyID),
		TriggerMethod: id.TriggerMethod(req.TriggerMethod),
		DeviceID:      id.DeviceID(req.DeviceID),
		UserAgent:     req.UserAgent,
		IsOffline:     req.IsOffline,
		Message:       req.Message,
		Jurisdiction:  id.Jurisdiction(req.Jurisdiction),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to isolate signal",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, raiseSignalResponse{
		SignalID:    result.Signal.ID,
		Status:      result.Signal.Status,
		BlackoutEnd: result.Blackout.EndTime,
	})
}

// handleGetSignal returns a signal for operator triage.
func (h *Handler) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	signal, err := h.signals.GetSignal(ctx, id.SignalID(chi.URLParam(r, "signalID")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toSignalResponse(signal))
}

type transitionStatusRequest struct {
	Status string `json:"status"`
}

// handleTransitionStatus moves a signal through its triage lifecycle.
func (h *Handler) handleTransitionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req transitionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	signalID := id.SignalID(chi.URLParam(r, "signalID"))
	signal, err := h.signals.TransitionStatus(ctx, signalID, id.SignalStatus(req.Status))
	if err != nil {
		h.logger.WarnContext(ctx, "signal status transition failed",
			"request_id", requestID,
			"operator_id", middleware.GetOperatorID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	if signal == nil {
		// Rejected transitions are no-ops; answer with the unchanged signal.
		signal, err = h.signals.GetSignal(ctx, signalID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
	}
	shared.WriteJSON(w, http.StatusOK, toSignalResponse(signal))
}

type processQueueResponse struct {
	Delivered int `json:"delivered"`
}

// handleProcessOfflineQueue re-delivers any signals queued while the child's
// device was offline.
func (h *Handler) handleProcessOfflineQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	delivered, err := h.signals.ProcessOfflineQueue(ctx, id.ChildID(chi.URLParam(r, "childID")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, processQueueResponse{Delivered: delivered})
}
