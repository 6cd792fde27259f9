// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// LibraryHandler handles listener library writes: likes, saves, follows.
type LibraryHandler struct {
	deps Dependencies
}

// NewLibraryHandler creates a new library handler.
func NewLibraryHandler(deps Dependencies) *LibraryHandler {
	return &LibraryHandler{deps: deps}
}

// libraryRequest mirrors the OpenAPI schema shared by the library endpoints.
type libraryRequest struct {
	ListenerID string `json:"listener_id"`
	ID         string `json:"id"`
}

func (l libraryRequest) validate() error {
	switch {
	case strings.TrimSpace(l.ListenerID) == "":
		return errors.New("missing listener_id")
	case strings.TrimSpace(l.ID) == "":
		return errors.New("missing id")
	}
	return nil
}

// HandleLikeTrack handles POST /v1/library/likes requests.
func (h *LibraryHandler) HandleLikeTrack(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, "api.like_track", h.deps.LikeTrack)
}

// HandleSaveAlbum handles POST /v1/library/albums requests.
func (h *LibraryHandler) HandleSaveAlbum(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, "api.save_album", h.deps.SaveAlbum)
}

// HandleFollowArtist handles POST /v1/library/artists requests.
func (h *LibraryHandler) HandleFollowArtist(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, "api.follow_artist", h.deps.FollowArtist)
}

func (h *LibraryHandler) handleWrite(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	write func(ctx context.Context, listenerID, id string) error,
) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req libraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := write(r.Context(), req.ListenerID, req.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
