// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/seed"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Play ingestion: idempotency plus async queueing.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	Enqueue(ctx context.Context, e model.PlayEvent) bool

	// Recommendation entry points.
	Radio(ctx context.Context, sd seed.Seed, excludeIDs []string, limit int) ([]model.Track, error)
	HomeShelves(ctx context.Context, listenerID string, trackLimit, albumLimit, artistLimit int) (*model.Shelves, error)

	// Listener library writes.
	LikeTrack(ctx context.Context, listenerID, trackID string) error
	SaveAlbum(ctx context.Context, listenerID, albumID string) error
	FollowArtist(ctx context.Context, listenerID, artistID string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	playsHandler   *PlaysHandler
	radioHandler   *RadioHandler
	homeHandler    *HomeHandler
	libraryHandler *LibraryHandler
}

// NewServer creates a new API server with all handlers. Non-positive limits
// fall back to handler defaults.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRadioLimit, maxShelfLimit int) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		playsHandler:   NewPlaysHandler(deps),
		radioHandler:   NewRadioHandler(deps, maxRadioLimit),
		homeHandler:    NewHomeHandler(deps, maxShelfLimit),
		libraryHandler: NewLibraryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/plays", MetricsMiddleware(s.playsHandler.HandlePostPlay, "plays"))
	mux.HandleFunc("/v1/radio", MetricsMiddleware(s.radioHandler.HandlePostRadio, "radio"))
	mux.HandleFunc("/v1/home", MetricsMiddleware(s.homeHandler.HandleGetHome, "home"))
	mux.HandleFunc("/v1/library/likes", MetricsMiddleware(s.libraryHandler.HandleLikeTrack, "library_likes"))
	mux.HandleFunc("/v1/library/albums", MetricsMiddleware(s.libraryHandler.HandleSaveAlbum, "library_albums"))
	mux.HandleFunc("/v1/library/artists", MetricsMiddleware(s.libraryHandler.HandleFollowArtist, "library_artists"))
}

// trackDTO mirrors the OpenAPI schema for a track resource.
type trackDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ArtistID        string `json:"artist_id"`
	AlbumID         string `json:"album_id,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
	GenreKey        string `json:"genre_key,omitempty"`
}

type albumDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ArtistID    string `json:"artist_id"`
	ImageURL    string `json:"image_url,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

type artistDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

func toTrackDTOs(tracks []model.Track) []trackDTO {
	out := make([]trackDTO, 0, len(tracks))
	for i := range tracks {
		out = append(out, trackDTO{
			ID:              tracks[i].ID,
			Name:            tracks[i].Name,
			ArtistID:        tracks[i].ArtistID,
			AlbumID:         tracks[i].AlbumID,
			DurationSeconds: tracks[i].DurationSeconds,
			AudioURL:        tracks[i].AudioURL,
			GenreKey:        tracks[i].GenreKey,
		})
	}
	return out
}

func toAlbumDTOs(albums []model.Album) []albumDTO {
	out := make([]albumDTO, 0, len(albums))
	for i := range albums {
		out = append(out, albumDTO{
			ID:          albums[i].ID,
			Name:        albums[i].Name,
			ArtistID:    albums[i].ArtistID,
			ImageURL:    albums[i].ImageURL,
			ReleaseDate: albums[i].ReleaseDate,
		})
	}
	return out
}

func toArtistDTOs(artists []model.Artist) []artistDTO {
	out := make([]artistDTO, 0, len(artists))
	for i := range artists {
		out = append(out, artistDTO{
			ID:       artists[i].ID,
			Name:     artists[i].Name,
			ImageURL: artists[i].ImageURL,
		})
	}
	return out
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
