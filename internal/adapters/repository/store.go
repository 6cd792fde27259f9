// Package repository defines the catalog and listener-library store
// interfaces consumed by the recommendation engines, plus errors.
package repository

import (
	"context"
	"time"

	"github.com/tidewave/melodex/internal/domain/model"
)

// TrackFilter narrows track queries. The zero value matches every track.
type TrackFilter struct {
	// Exclude lists track ids that must not be returned.
	Exclude map[string]struct{}
	// RequireAudio keeps only tracks with a playable audio reference.
	RequireAudio bool
	// RequireEmbedding keeps only tracks with a content vector.
	RequireEmbedding bool
	// RequireGenre keeps only tracks with a non-empty genre key.
	RequireGenre bool
	// GenreKeys, when non-empty, keeps only tracks whose normalized genre
	// key is in the set.
	GenreKeys map[string]struct{}
}

// Excluded reports whether id is in the filter's exclusion set.
func (f *TrackFilter) Excluded(id string) bool {
	if f.Exclude == nil {
		return false
	}
	_, ok := f.Exclude[id]
	return ok
}

// Catalog provides read access to tracks, albums and artists. Capped queries
// return a uniform random subset when more rows match than the cap allows,
// so repeated retrieval tiers see varied material.
type Catalog interface {
	TrackByID(ctx context.Context, id string) (*model.Track, error)
	AlbumByID(ctx context.Context, id string) (*model.Album, error)
	ArtistByID(ctx context.Context, id string) (*model.Artist, error)

	TracksByIDs(ctx context.Context, ids []string) ([]model.Track, error)
	AlbumsByIDs(ctx context.Context, ids []string) ([]model.Album, error)
	ArtistsByIDs(ctx context.Context, ids []string) ([]model.Artist, error)

	TracksByAlbum(ctx context.Context, albumID string, limit int) ([]model.Track, error)
	TracksByArtist(ctx context.Context, artistID string, limit int) ([]model.Track, error)

	TracksByArtists(ctx context.Context, artistIDs []string, f TrackFilter, limit int) ([]model.Track, error)
	TracksByAlbums(ctx context.Context, albumIDs []string, f TrackFilter, limit int) ([]model.Track, error)
	TracksByCategory(ctx context.Context, slug string, f TrackFilter, limit int) ([]model.Track, error)
	TracksByGenreKeys(ctx context.Context, keys []string, f TrackFilter, limit int) ([]model.Track, error)

	// RandomTracks returns up to n uniformly sampled tracks matching f.
	RandomTracks(ctx context.Context, n int, f TrackFilter) ([]model.Track, error)
	RandomAlbums(ctx context.Context, n int) ([]model.Album, error)
	RandomArtists(ctx context.Context, n int) ([]model.Artist, error)
}

// Library provides access to a listener's preference signals. Reads are
// sampled and capped the same way the catalog queries are.
type Library interface {
	LikedTrackIDs(ctx context.Context, listenerID string, limit int) ([]string, error)
	SavedAlbumIDs(ctx context.Context, listenerID string, limit int) ([]string, error)
	FollowedArtistIDs(ctx context.Context, listenerID string, limit int) ([]string, error)

	// RecentPlays returns the listener's play log newest-first, deduplicated
	// by track id (keeping the newest play of each track), capped to limit.
	RecentPlays(ctx context.Context, listenerID string, limit int) ([]model.Play, error)

	RecordPlay(ctx context.Context, listenerID, trackID string, at time.Time) error
	LikeTrack(ctx context.Context, listenerID, trackID string) error
	SaveAlbum(ctx context.Context, listenerID, albumID string) error
	FollowArtist(ctx context.Context, listenerID, artistID string) error
}

// Store bundles both read surfaces; the in-memory implementation backs both.
type Store interface {
	Catalog
	Library
}
