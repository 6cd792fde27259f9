// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tidewave/melodex/internal/domain/model"
)

// PlaysHandler handles play telemetry ingestion.
type PlaysHandler struct {
	deps Dependencies
}

// NewPlaysHandler creates a new plays handler.
func NewPlaysHandler(deps Dependencies) *PlaysHandler {
	return &PlaysHandler{deps: deps}
}

// playRequest mirrors the OpenAPI schema for POST /v1/plays.
type playRequest struct {
	EventID    string `json:"event_id"`
	ListenerID string `json:"listener_id"`
	TrackID    string `json:"track_id"`
	PlayedAt   string `json:"played_at"`
}

func (p playRequest) validate() error {
	switch {
	case strings.TrimSpace(p.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(p.ListenerID) == "":
		return errors.New("missing listener_id")
	case strings.TrimSpace(p.TrackID) == "":
		return errors.New("missing track_id")
	case strings.TrimSpace(p.PlayedAt) == "":
		return errors.New("missing played_at")
	}
	if _, err := time.Parse(time.RFC3339, p.PlayedAt); err != nil {
		return errors.New("invalid played_at; must be RFC3339")
	}
	return nil
}

// HandlePostPlay handles POST /v1/plays requests.
func (h *PlaysHandler) HandlePostPlay(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_play"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check: mark as seen first.
	if h.deps.SeenAndRecord(r.Context(), req.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	playedAt, _ := time.Parse(time.RFC3339, req.PlayedAt)
	e := model.PlayEvent{
		EventID:    req.EventID,
		ListenerID: req.ListenerID,
		TrackID:    req.TrackID,
		PlayedAt:   playedAt,
	}
	if ok := h.deps.Enqueue(r.Context(), e); !ok {
		// Roll back the "seen" status so the client can retry.
		h.deps.Unrecord(r.Context(), req.EventID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
