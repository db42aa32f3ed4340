// Package handler exposes the family-facing activity timeline endpoint. This
// is the one surface the parent app backend reads, so the response never
// contains a synthetic marker.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"beacon/internal/gapfill"
	"beacon/internal/transport/http/shared"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// Service defines the timeline operations behind the endpoint.
type Service interface {
	GetFamilyTimeline(ctx context.Context, childID id.ChildID, from, to time.Time) ([]gapfill.FamilyActivityEntry, error)
}

// Handler handles timeline endpoints.
type Handler struct {
	logger   *slog.Logger
	timeline Service
}

// New creates a new timeline Handler.
func New(timeline Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		timeline: timeline,
	}
}

// Register registers the timeline routes with the chi router. The parent app
// backend authenticates at the gateway, so no operator token is required here.
func (h *Handler) Register(r chi.Router) {
	r.Get("/children/{childID}/timeline", h.handleGetTimeline)
}

// handleGetTimeline returns the child's activity timeline over [from, to).
func (h *Handler) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "from must be RFC 3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "to must be RFC 3339"))
		return
	}

	entries, err := h.timeline.GetFamilyTimeline(ctx, id.ChildID(chi.URLParam(r, "childID")), from, to)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []gapfill.FamilyActivityEntry{}
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}
