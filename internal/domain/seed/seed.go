// Package seed builds read-only profiles for the entity anchoring a radio
// request. A profile exposes the derived attributes scorers need, with
// explicit "unknown" results instead of sentinel values.
package seed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/vector"
)

// Kind tags the entity type a radio request is anchored on.
type Kind int

const (
	KindTrack Kind = iota
	KindAlbum
	KindArtist
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindArtist:
		return "artist"
	default:
		return "unknown"
	}
}

// ParseKind converts a wire name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "track":
		return KindTrack, nil
	case "album":
		return KindAlbum, nil
	case "artist":
		return KindArtist, nil
	default:
		return 0, fmt.Errorf("unknown seed type %q", s)
	}
}

// Seed identifies the anchor of a radio request.
type Seed struct {
	Kind Kind
	ID   string
}

// Bounds on how many anchor tracks feed a synthesized album/artist embedding.
const (
	albumEmbeddingSampleCap  = 60
	artistEmbeddingSampleCap = 120
)

// Catalog is the minimal read surface profile construction needs.
type Catalog interface {
	TrackByID(ctx context.Context, id string) (*model.Track, error)
	AlbumByID(ctx context.Context, id string) (*model.Album, error)
	ArtistByID(ctx context.Context, id string) (*model.Artist, error)
	// TracksByAlbum and TracksByArtist return up to limit tracks; ordering
	// is unspecified.
	TracksByAlbum(ctx context.Context, albumID string, limit int) ([]model.Track, error)
	TracksByArtist(ctx context.Context, artistID string, limit int) ([]model.Track, error)
}

// Profile is a read-only view over a resolved seed. Exactly one of Track,
// Album, Artist is the anchor; joined entities are populated when available.
type Profile struct {
	Kind   Kind
	Track  *model.Track
	Album  *model.Album
	Artist *model.Artist

	// embedding is the anchor's vector; synthesized for album/artist anchors.
	embedding []float64
}

// ArtistID returns the seed's artist id, falling through track -> album -> artist.
func (p *Profile) ArtistID() (string, bool) {
	switch {
	case p.Track != nil && p.Track.ArtistID != "":
		return p.Track.ArtistID, true
	case p.Album != nil && p.Album.ArtistID != "":
		return p.Album.ArtistID, true
	case p.Artist != nil:
		return p.Artist.ID, true
	}
	return "", false
}

// AlbumID returns the seed's album id when one is known.
func (p *Profile) AlbumID() (string, bool) {
	switch {
	case p.Track != nil && p.Track.AlbumID != "":
		return p.Track.AlbumID, true
	case p.Album != nil:
		return p.Album.ID, true
	}
	return "", false
}

// CategorySlug returns the seed track's browse category.
func (p *Profile) CategorySlug() (string, bool) {
	if p.Track != nil && p.Track.CategorySlug != "" {
		return p.Track.CategorySlug, true
	}
	return "", false
}

// RadioGenreKey returns the seed track's precomputed radio genre key.
func (p *Profile) RadioGenreKey() (string, bool) {
	if p.Track != nil && p.Track.GenreKey != "" {
		return p.Track.GenreKey, true
	}
	return "", false
}

// GenreID returns the seed track's provider genre code.
func (p *Profile) GenreID() (string, bool) {
	if p.Track != nil && p.Track.GenreID != "" {
		return p.Track.GenreID, true
	}
	return "", false
}

// DurationSeconds returns the seed track's duration.
func (p *Profile) DurationSeconds() (int, bool) {
	if p.Track != nil && p.Track.DurationSeconds > 0 {
		return p.Track.DurationSeconds, true
	}
	return 0, false
}

// ReleaseYear returns the year of the seed's album release date.
// Unparseable dates yield no value rather than an error.
func (p *Profile) ReleaseYear() (int, bool) {
	var date string
	if p.Album != nil {
		date = p.Album.ReleaseDate
	}
	if date == "" {
		return 0, false
	}
	return ParseYear(date)
}

// Embedding returns the anchor's content vector, or nil when none exists.
func (p *Profile) Embedding() []float64 {
	return p.embedding
}

// ParseYear extracts the year from an ISO release date. A bare year is also
// accepted since some ingestion batches only carry that much.
func ParseYear(date string) (int, bool) {
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Year(), true
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil && y > 0 {
			return y, true
		}
	}
	return 0, false
}

// Build resolves s against the catalog into a Profile. It returns the
// catalog's not-found error unchanged when the anchor does not exist, so
// callers can translate it into an empty radio result.
func Build(ctx context.Context, cat Catalog, s Seed) (*Profile, error) {
	switch s.Kind {
	case KindTrack:
		return buildFromTrack(ctx, cat, s.ID)
	case KindAlbum:
		return buildFromAlbum(ctx, cat, s.ID)
	case KindArtist:
		return buildFromArtist(ctx, cat, s.ID)
	default:
		return nil, fmt.Errorf("unknown seed kind %d", s.Kind)
	}
}

func buildFromTrack(ctx context.Context, cat Catalog, id string) (*Profile, error) {
	track, err := cat.TrackByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &Profile{Kind: KindTrack, Track: track, embedding: track.Embedding}
	if track.AlbumID != "" {
		if album, err := cat.AlbumByID(ctx, track.AlbumID); err == nil {
			p.Album = album
		}
	}
	if track.ArtistID != "" {
		if artist, err := cat.ArtistByID(ctx, track.ArtistID); err == nil {
			p.Artist = artist
		}
	}
	return p, nil
}

func buildFromAlbum(ctx context.Context, cat Catalog, id string) (*Profile, error) {
	album, err := cat.AlbumByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &Profile{Kind: KindAlbum, Album: album}
	if album.ArtistID != "" {
		if artist, err := cat.ArtistByID(ctx, album.ArtistID); err == nil {
			p.Artist = artist
		}
	}

	tracks, err := cat.TracksByAlbum(ctx, album.ID, albumEmbeddingSampleCap)
	if err != nil {
		return nil, err
	}
	p.embedding = meanEmbedding(tracks)
	return p, nil
}

func buildFromArtist(ctx context.Context, cat Catalog, id string) (*Profile, error) {
	artist, err := cat.ArtistByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &Profile{Kind: KindArtist, Artist: artist}
	tracks, err := cat.TracksByArtist(ctx, artist.ID, artistEmbeddingSampleCap)
	if err != nil {
		return nil, err
	}
	p.embedding = meanEmbedding(tracks)
	return p, nil
}

// meanEmbedding synthesizes an anchor vector from the tracks that have one.
func meanEmbedding(tracks []model.Track) []float64 {
	var vecs [][]float64
	for i := range tracks {
		if tracks[i].HasEmbedding() {
			vecs = append(vecs, tracks[i].Embedding)
		}
	}
	if len(vecs) == 0 {
		return nil
	}
	return vector.Mean(vecs)
}
