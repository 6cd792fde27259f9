// Package scoring computes the non-embedding affinity between a candidate
// track and a seed profile.
package scoring

import (
	"math/rand"
	"time"

	"github.com/tidewave/melodex/internal/domain/genre"
	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/seed"
)

// Default component weights. These are tuned values carried over from the
// production ranking; change them only with re-tuning evidence.
const (
	defaultArtistWeight   = 0.5
	defaultAlbumWeight    = 0.2
	defaultGenreWeight    = 0.25
	defaultYearWeight     = 0.1
	defaultDurationWeight = 0.05

	// artistSeedDamping scales the same-artist bonus down for artist-seeded
	// radio, which already biases toward the seed artist during retrieval.
	artistSeedDamping = 0.3

	yearDecayWindow     = 20.0  // years
	durationDecayWindow = 180.0 // seconds

	jitterSteps   = 1000
	jitterDivisor = 1000000.0 // jitter lands in [0, 0.001]
)

// Option applies a configuration option to the MetadataScorer.
type Option func(*MetadataScorer)

// WithGraph sets the genre graph used for the genre component.
func WithGraph(g *genre.Graph) Option {
	return func(s *MetadataScorer) {
		if g != nil {
			s.graph = g
		}
	}
}

// WithWeights overrides all five component weights at once.
func WithWeights(artist, album, genreW, year, duration float64) Option {
	return func(s *MetadataScorer) {
		s.artistWeight = artist
		s.albumWeight = album
		s.genreWeight = genreW
		s.yearWeight = year
		s.durationWeight = duration
	}
}

// WithJitterSource injects the random source feeding the tie-break jitter.
func WithJitterSource(rng *rand.Rand) Option {
	return func(s *MetadataScorer) {
		if rng != nil {
			s.jitter = rng
		}
	}
}

// WithoutJitter disables the tie-break jitter entirely, making scores fully
// deterministic. Intended for tests.
func WithoutJitter() Option {
	return func(s *MetadataScorer) {
		s.jitter = nil
	}
}

// MetadataScorer computes a weighted affinity score from catalog metadata
// alone. It never fails: any missing input simply zeroes that component.
type MetadataScorer struct {
	graph *genre.Graph

	artistWeight   float64
	albumWeight    float64
	genreWeight    float64
	yearWeight     float64
	durationWeight float64

	jitter *rand.Rand
}

// NewMetadataScorer creates a scorer with production weights and a
// time-seeded jitter source.
func NewMetadataScorer(opts ...Option) *MetadataScorer {
	s := &MetadataScorer{
		graph:          genre.NewGraph(),
		artistWeight:   defaultArtistWeight,
		albumWeight:    defaultAlbumWeight,
		genreWeight:    defaultGenreWeight,
		yearWeight:     defaultYearWeight,
		durationWeight: defaultDurationWeight,
		jitter:         rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter only breaks score ties
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score returns the metadata affinity of candidate to the seed profile.
// candidateAlbum is the candidate's joined album, used for the release-year
// component; nil skips that component. Higher is closer; there is no fixed
// upper bound.
func (s *MetadataScorer) Score(candidate *model.Track, candidateAlbum *model.Album, prof *seed.Profile, kind seed.Kind) float64 {
	score := s.randomJitter()

	artistWeight := s.artistWeight
	if kind == seed.KindArtist {
		artistWeight *= artistSeedDamping
	}

	if artistID, ok := prof.ArtistID(); ok && candidate.ArtistID == artistID {
		score += artistWeight
	}

	if albumID, ok := prof.AlbumID(); ok && candidate.AlbumID != "" && candidate.AlbumID == albumID {
		score += s.albumWeight
	}

	if sim := s.graph.Similarity(s.seedGenreKey(prof), candidateGenre(candidate)); sim > 0 {
		score += s.genreWeight * sim
	}

	if ys := yearSimilarity(candidateAlbum, prof); ys > 0 {
		score += s.yearWeight * ys
	}

	if ds := durationSimilarity(candidate, prof); ds > 0 {
		score += s.durationWeight * ds
	}

	return score
}

// yearSimilarity decays linearly to zero over a 20 year window. Unknown
// years on either side contribute nothing.
func yearSimilarity(candidateAlbum *model.Album, prof *seed.Profile) float64 {
	seedYear, ok := prof.ReleaseYear()
	if !ok {
		return 0.0
	}
	if candidateAlbum == nil {
		return 0.0
	}
	candidateYear, ok := seed.ParseYear(candidateAlbum.ReleaseDate)
	if !ok {
		return 0.0
	}

	diff := float64(seedYear - candidateYear)
	if diff < 0 {
		diff = -diff
	}
	v := 1.0 - diff/yearDecayWindow
	if v < 0 {
		return 0.0
	}
	return v
}

// durationSimilarity prefers candidates within +/- 3 minutes of the seed.
func durationSimilarity(candidate *model.Track, prof *seed.Profile) float64 {
	seedDur, ok := prof.DurationSeconds()
	if !ok || candidate.DurationSeconds <= 0 {
		return 0.0
	}

	diff := float64(seedDur - candidate.DurationSeconds)
	if diff < 0 {
		diff = -diff
	}
	v := 1.0 - diff/durationDecayWindow
	if v < 0 {
		return 0.0
	}
	return v
}

// randomJitter breaks exact score ties without disturbing real orderings.
func (s *MetadataScorer) randomJitter() float64 {
	if s.jitter == nil {
		return 0.0
	}
	return float64(s.jitter.Intn(jitterSteps+1)) / jitterDivisor
}

// seedGenreKey prefers the seed's non-generic category, falling back to the
// provider genre code.
func (s *MetadataScorer) seedGenreKey(prof *seed.Profile) string {
	if slug, ok := prof.CategorySlug(); ok && !genre.IsGenericCategory(slug) {
		return slug
	}
	if id, ok := prof.GenreID(); ok {
		return id
	}
	return ""
}

// candidateGenre prefers the candidate's category, falling back to the
// provider genre code.
func candidateGenre(t *model.Track) string {
	if t.CategorySlug != "" {
		return t.CategorySlug
	}
	return t.GenreID
}
