// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultTrackShelf  = 20
	defaultAlbumShelf  = 18
	defaultArtistShelf = 18
	defaultMaxShelf    = 60
)

// HomeHandler handles personalized shelf requests.
type HomeHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewHomeHandler creates a new home handler.
func NewHomeHandler(deps Dependencies, maxLimit int) *HomeHandler {
	if maxLimit <= 0 {
		maxLimit = defaultMaxShelf
	}
	return &HomeHandler{deps: deps, maxLimit: maxLimit}
}

type homeResponse struct {
	Tracks  []trackDTO  `json:"tracks"`
	Albums  []albumDTO  `json:"albums"`
	Artists []artistDTO `json:"artists"`
}

// HandleGetHome handles GET /v1/home requests.
func (h *HomeHandler) HandleGetHome(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_home"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	listenerID := strings.TrimSpace(r.URL.Query().Get("listener_id"))
	if listenerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing listener_id")))
		return
	}

	trackLimit, err := h.shelfLimit(r, "track_limit", defaultTrackShelf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	albumLimit, err := h.shelfLimit(r, "album_limit", defaultAlbumShelf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	artistLimit, err := h.shelfLimit(r, "artist_limit", defaultArtistShelf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	shelves, err := h.deps.HomeShelves(r.Context(), listenerID, trackLimit, albumLimit, artistLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, homeResponse{
		Tracks:  toTrackDTOs(shelves.Tracks),
		Albums:  toAlbumDTOs(shelves.Albums),
		Artists: toArtistDTOs(shelves.Artists),
	})
}

// shelfLimit parses an optional per-shelf limit query parameter.
func (h *HomeHandler) shelfLimit(r *http.Request, param string, def int) (int, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("invalid " + param)
	}
	if n > h.maxLimit {
		return 0, errors.New(param + " exceeds maximum")
	}
	return n, nil
}
