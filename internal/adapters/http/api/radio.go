// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tidewave/melodex/internal/domain/seed"
)

const (
	defaultRadioLimit = 30
	defaultMaxRadio   = 100
)

// RadioHandler handles seeded radio requests.
type RadioHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewRadioHandler creates a new radio handler.
func NewRadioHandler(deps Dependencies, maxLimit int) *RadioHandler {
	if maxLimit <= 0 {
		maxLimit = defaultMaxRadio
	}
	return &RadioHandler{deps: deps, maxLimit: maxLimit}
}

// radioRequest mirrors the OpenAPI schema for POST /v1/radio.
type radioRequest struct {
	SeedType        string   `json:"seed_type"`
	SeedID          string   `json:"seed_id"`
	ExcludeTrackIDs []string `json:"exclude_track_ids"`
	Limit           int      `json:"limit"`
}

type radioSeedDTO struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type radioResponse struct {
	Seed   radioSeedDTO `json:"seed"`
	Tracks []trackDTO   `json:"tracks"`
}

// HandlePostRadio handles POST /v1/radio requests. POST rather than GET
// because the exclusion list grows with every pagination call.
func (h *RadioHandler) HandlePostRadio(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_radio"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req radioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.SeedID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing seed_id")))
		return
	}
	kind, err := seed.ParseKind(req.SeedType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultRadioLimit
	}
	if req.Limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	tracks, err := h.deps.Radio(r.Context(), seed.Seed{Kind: kind, ID: req.SeedID}, req.ExcludeTrackIDs, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, radioResponse{
		Seed:   radioSeedDTO{Type: kind.String(), ID: req.SeedID},
		Tracks: toTrackDTOs(tracks),
	})
}
