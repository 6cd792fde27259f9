// Package model contains catalog and listener domain models passed between layers.
package model

import "time"

// Track is a single playable catalog entry. Instances handed to the engine
// are treated as immutable for the duration of one recommendation call.
type Track struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ArtistID        string `json:"artist_id"`
	AlbumID         string `json:"album_id,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
	// CategorySlug is the curated browse category, e.g. "metal".
	CategorySlug string `json:"category_slug,omitempty"`
	// GenreKey is the precomputed radio genre key; may be empty or generic.
	GenreKey string `json:"genre_key,omitempty"`
	// GenreID is the upstream provider's numeric genre code, kept as a string.
	GenreID string `json:"genre_id,omitempty"`
	// Embedding is the track's content vector; nil when never computed.
	Embedding []float64 `json:"embedding,omitempty"`
}

// HasEmbedding reports whether the track carries a usable content vector.
func (t *Track) HasEmbedding() bool {
	return len(t.Embedding) > 0
}

// Album groups tracks under one release.
type Album struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ArtistID string `json:"artist_id"`
	ImageURL string `json:"image_url,omitempty"`
	// ReleaseDate is an ISO date, e.g. "2004-09-21"; may be empty.
	ReleaseDate string `json:"release_date,omitempty"`
	Genre       string `json:"genre,omitempty"`
}

// Artist is a catalog performer.
type Artist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Play records one listen of a track by a listener.
type Play struct {
	TrackID  string    `json:"track_id"`
	PlayedAt time.Time `json:"played_at"`
}

// PlayEvent is the telemetry payload submitted by clients. EventID makes
// ingestion idempotent across client retries.
type PlayEvent struct {
	EventID    string    `json:"event_id"`
	ListenerID string    `json:"listener_id"`
	TrackID    string    `json:"track_id"`
	PlayedAt   time.Time `json:"played_at"`
}

// Shelves bundles the three personalized result lists returned for a listener.
type Shelves struct {
	Tracks  []Track  `json:"tracks"`
	Albums  []Album  `json:"albums"`
	Artists []Artist `json:"artists"`
}
