package repository

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tidewave/melodex/internal/domain/genre"
	"github.com/tidewave/melodex/internal/domain/model"
)

// MemoryStore implements Store with map-backed tables and secondary indexes
// by artist, album, category and genre key. Play telemetry mutates it
// concurrently with engine reads, so all access goes through one RWMutex;
// the sampling paths take the write lock because the shared random source is
// not safe for concurrent use.
type MemoryStore struct {
	mu  sync.RWMutex
	rng *rand.Rand

	tracks  map[string]model.Track
	albums  map[string]model.Album
	artists map[string]model.Artist

	// Insertion-ordered id slices keep sampling deterministic under a
	// fixed-seed source.
	trackIDs  []string
	albumIDs  []string
	artistIDs []string

	byArtist   map[string][]string
	byAlbum    map[string][]string
	byCategory map[string][]string
	byGenre    map[string][]string

	listeners map[string]*listenerState
}

type listenerState struct {
	liked    []string
	likedSet map[string]struct{}

	savedAlbums []string
	savedSet    map[string]struct{}

	followedArtists []string
	followedSet     map[string]struct{}

	plays []model.Play // append-only, oldest first
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // sampling, not security
		tracks:     make(map[string]model.Track),
		albums:     make(map[string]model.Album),
		artists:    make(map[string]model.Artist),
		byArtist:   make(map[string][]string),
		byAlbum:    make(map[string][]string),
		byCategory: make(map[string][]string),
		byGenre:    make(map[string][]string),
		listeners:  make(map[string]*listenerState),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AddArtist inserts or replaces an artist.
func (s *MemoryStore) AddArtist(a model.Artist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.artists[a.ID]; !exists {
		s.artistIDs = append(s.artistIDs, a.ID)
	}
	s.artists[a.ID] = a
}

// AddAlbum inserts or replaces an album.
func (s *MemoryStore) AddAlbum(a model.Album) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.albums[a.ID]; !exists {
		s.albumIDs = append(s.albumIDs, a.ID)
	}
	s.albums[a.ID] = a
}

// AddTrack inserts a track and maintains the secondary indexes. Replacing an
// existing track id is rejected to keep the indexes simple.
func (s *MemoryStore) AddTrack(t model.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		return fmt.Errorf("%w: track without id", ErrInvalidInput)
	}
	if _, exists := s.tracks[t.ID]; exists {
		return fmt.Errorf("%w: duplicate track %s", ErrInvalidInput, t.ID)
	}

	s.tracks[t.ID] = t
	s.trackIDs = append(s.trackIDs, t.ID)
	if t.ArtistID != "" {
		s.byArtist[t.ArtistID] = append(s.byArtist[t.ArtistID], t.ID)
	}
	if t.AlbumID != "" {
		s.byAlbum[t.AlbumID] = append(s.byAlbum[t.AlbumID], t.ID)
	}
	if t.CategorySlug != "" {
		s.byCategory[t.CategorySlug] = append(s.byCategory[t.CategorySlug], t.ID)
	}
	if t.GenreKey != "" {
		k := genre.Normalize(t.GenreKey)
		s.byGenre[k] = append(s.byGenre[k], t.ID)
	}
	return nil
}

// TrackByID returns the track or ErrNotFound.
func (s *MemoryStore) TrackByID(_ context.Context, id string) (*model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tracks[id]
	if !ok {
		return nil, fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

// AlbumByID returns the album or ErrNotFound.
func (s *MemoryStore) AlbumByID(_ context.Context, id string) (*model.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.albums[id]
	if !ok {
		return nil, fmt.Errorf("album %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

// ArtistByID returns the artist or ErrNotFound.
func (s *MemoryStore) ArtistByID(_ context.Context, id string) (*model.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artists[id]
	if !ok {
		return nil, fmt.Errorf("artist %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

// TracksByIDs returns the tracks that exist among ids, in input order.
func (s *MemoryStore) TracksByIDs(_ context.Context, ids []string) ([]model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tracks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// AlbumsByIDs returns the albums that exist among ids, in input order.
func (s *MemoryStore) AlbumsByIDs(_ context.Context, ids []string) ([]model.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Album, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.albums[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// ArtistsByIDs returns the artists that exist among ids, in input order.
func (s *MemoryStore) ArtistsByIDs(_ context.Context, ids []string) ([]model.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Artist, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.artists[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// TracksByAlbum returns up to limit tracks of the album, sampled when over
// the cap.
func (s *MemoryStore) TracksByAlbum(_ context.Context, albumID string, limit int) ([]model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.byAlbum[albumID], TrackFilter{}, limit), nil
}

// TracksByArtist returns up to limit tracks of the artist, sampled when over
// the cap.
func (s *MemoryStore) TracksByArtist(_ context.Context, artistID string, limit int) ([]model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.byArtist[artistID], TrackFilter{}, limit), nil
}

// TracksByArtists returns up to limit tracks across the given artists.
func (s *MemoryStore) TracksByArtists(_ context.Context, artistIDs []string, f TrackFilter, limit int) ([]model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, aid := range artistIDs {
		ids = append(ids, s.byArtist[aid]...)
	}
	return s.collect(ids, f, limit), nil
}

// TracksByAlbums returns up to limit tracks across the given albums.
func (s *MemoryStore) TracksByAlbums(_ context.Context, albumIDs []string, f TrackFilter, limit int) ([]model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, aid := range albumIDs {
		ids = append(ids, s.byAlbum[aid]...)
	}
	return s.collect(ids, f, limit), nil
}

// TracksByCategory returns up to limit tracks in the browse category.
func (s *MemoryStore) TracksByCategory(_ context.Context, slug string, f TrackFilter, limit int) ([]model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.byCategory[slug], f, limit), nil
}

// TracksByGenreKeys returns up to limit tracks whose normalized genre key is
// one of keys.
func (s *MemoryStore) TracksByGenreKeys(_ context.Context, keys []string, f TrackFilter, limit int) ([]model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, k := range keys {
		ids = append(ids, s.byGenre[genre.Normalize(k)]...)
	}
	return s.collect(ids, f, limit), nil
}

// RandomTracks returns up to n uniformly sampled tracks matching f.
func (s *MemoryStore) RandomTracks(_ context.Context, n int, f TrackFilter) ([]model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.trackIDs, f, n), nil
}

// RandomAlbums returns up to n uniformly sampled albums.
func (s *MemoryStore) RandomAlbums(_ context.Context, n int) ([]model.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Album, 0, n)
	for _, id := range s.sample(s.albumIDs, n) {
		out = append(out, s.albums[id])
	}
	return out, nil
}

// RandomArtists returns up to n uniformly sampled artists.
func (s *MemoryStore) RandomArtists(_ context.Context, n int) ([]model.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Artist, 0, n)
	for _, id := range s.sample(s.artistIDs, n) {
		out = append(out, s.artists[id])
	}
	return out, nil
}

// collect filters ids, samples down to limit, and resolves tracks.
// Caller must hold s.mu.
func (s *MemoryStore) collect(ids []string, f TrackFilter, limit int) []model.Track {
	matched := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		t, ok := s.tracks[id]
		if !ok || !s.matches(&t, &f) {
			continue
		}
		matched = append(matched, id)
	}

	out := make([]model.Track, 0, limit)
	for _, id := range s.sample(matched, limit) {
		out = append(out, s.tracks[id])
	}
	return out
}

// matches applies the filter to one track. Caller must hold s.mu.
func (s *MemoryStore) matches(t *model.Track, f *TrackFilter) bool {
	if f.Excluded(t.ID) {
		return false
	}
	if f.RequireAudio && t.AudioURL == "" {
		return false
	}
	if f.RequireEmbedding && !t.HasEmbedding() {
		return false
	}
	if f.RequireGenre && t.GenreKey == "" {
		return false
	}
	if len(f.GenreKeys) > 0 {
		if _, ok := f.GenreKeys[genre.Normalize(t.GenreKey)]; !ok {
			return false
		}
	}
	return true
}

// sample returns up to n ids in random order. Caller must hold s.mu.
func (s *MemoryStore) sample(ids []string, n int) []string {
	if n <= 0 || n >= len(ids) {
		out := make([]string, len(ids))
		copy(out, ids)
		s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	out := make([]string, 0, n)
	for _, idx := range s.rng.Perm(len(ids))[:n] {
		out = append(out, ids[idx])
	}
	return out
}

// listener returns the mutable state for listenerID, creating it on demand.
// Caller must hold s.mu.
func (s *MemoryStore) listener(listenerID string) *listenerState {
	ls, ok := s.listeners[listenerID]
	if !ok {
		ls = &listenerState{
			likedSet:    make(map[string]struct{}),
			savedSet:    make(map[string]struct{}),
			followedSet: make(map[string]struct{}),
		}
		s.listeners[listenerID] = ls
	}
	return ls
}

// LikedTrackIDs returns up to limit of the listener's liked tracks, sampled.
func (s *MemoryStore) LikedTrackIDs(_ context.Context, listenerID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.listeners[listenerID]
	if !ok {
		return nil, nil
	}
	return s.sample(ls.liked, limit), nil
}

// SavedAlbumIDs returns up to limit of the listener's saved albums, sampled.
func (s *MemoryStore) SavedAlbumIDs(_ context.Context, listenerID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.listeners[listenerID]
	if !ok {
		return nil, nil
	}
	return s.sample(ls.savedAlbums, limit), nil
}

// FollowedArtistIDs returns up to limit of the listener's followed artists,
// sampled.
func (s *MemoryStore) FollowedArtistIDs(_ context.Context, listenerID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.listeners[listenerID]
	if !ok {
		return nil, nil
	}
	return s.sample(ls.followedArtists, limit), nil
}

// RecentPlays returns the newest plays first, one per track, up to limit.
func (s *MemoryStore) RecentPlays(_ context.Context, listenerID string, limit int) ([]model.Play, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.listeners[listenerID]
	if !ok {
		return nil, nil
	}

	out := make([]model.Play, 0, limit)
	seen := make(map[string]struct{})
	for i := len(ls.plays) - 1; i >= 0; i-- {
		p := ls.plays[i]
		if _, dup := seen[p.TrackID]; dup {
			continue
		}
		seen[p.TrackID] = struct{}{}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// RecordPlay appends a play to the listener's log. The track must exist.
func (s *MemoryStore) RecordPlay(_ context.Context, listenerID, trackID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[trackID]; !ok {
		return fmt.Errorf("track %s: %w", trackID, ErrNotFound)
	}
	ls := s.listener(listenerID)
	ls.plays = append(ls.plays, model.Play{TrackID: trackID, PlayedAt: at})
	return nil
}

// LikeTrack adds the track to the listener's liked collection.
func (s *MemoryStore) LikeTrack(_ context.Context, listenerID, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[trackID]; !ok {
		return fmt.Errorf("track %s: %w", trackID, ErrNotFound)
	}
	ls := s.listener(listenerID)
	if _, dup := ls.likedSet[trackID]; dup {
		return nil
	}
	ls.likedSet[trackID] = struct{}{}
	ls.liked = append(ls.liked, trackID)
	return nil
}

// SaveAlbum adds the album to the listener's saved collection.
func (s *MemoryStore) SaveAlbum(_ context.Context, listenerID, albumID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.albums[albumID]; !ok {
		return fmt.Errorf("album %s: %w", albumID, ErrNotFound)
	}
	ls := s.listener(listenerID)
	if _, dup := ls.savedSet[albumID]; dup {
		return nil
	}
	ls.savedSet[albumID] = struct{}{}
	ls.savedAlbums = append(ls.savedAlbums, albumID)
	return nil
}

// FollowArtist adds the artist to the listener's followed set.
func (s *MemoryStore) FollowArtist(_ context.Context, listenerID, artistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artists[artistID]; !ok {
		return fmt.Errorf("artist %s: %w", artistID, ErrNotFound)
	}
	ls := s.listener(listenerID)
	if _, dup := ls.followedSet[artistID]; dup {
		return nil
	}
	ls.followedSet[artistID] = struct{}{}
	ls.followedArtists = append(ls.followedArtists, artistID)
	return nil
}

// Counts returns table sizes for the stats endpoint.
func (s *MemoryStore) Counts() (tracks, albums, artists, listeners int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks), len(s.albums), len(s.artists), len(s.listeners)
}
