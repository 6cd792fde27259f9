package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	repository "github.com/tidewave/melodex/internal/adapters/repository"
	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/vector"
	"github.com/tidewave/melodex/pkg/logger"
)

// Genres the generator clusters the catalog around. Aligned with the curated
// genre graph so gating and quotas have real material to work with.
var catalogGenres = []string{
	"metal", "rock", "punk", "pop", "dance-electronic",
	"rnb", "soul", "jazz", "blues", "hip-hop",
}

const (
	embeddingNoise    = 0.25
	minTrackSeconds   = 120
	trackSecondsSpan  = 240
	oldestReleaseYear = 1980
	releaseYearSpan   = 45
)

// GenerateCatalog builds a synthetic catalog with genre-clustered embeddings:
// every genre gets a random unit centroid, and each track's vector is its
// artist genre's centroid plus bounded noise, re-normalized. Tracks of the
// same genre therefore score high cosine similarity against each other.
func GenerateCatalog(ctx context.Context, cfg *Config) *repository.CatalogDump {
	seedVal := cfg.Seed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal)) //nolint:gosec // synthetic data

	centroids := make(map[string][]float64, len(catalogGenres))
	for _, g := range catalogGenres {
		centroids[g] = randomUnitVector(rng, cfg.EmbeddingDim)
	}

	dump := &repository.CatalogDump{}
	for a := 0; a < cfg.Artists; a++ {
		genre := catalogGenres[a%len(catalogGenres)]
		artist := model.Artist{
			ID:   fmt.Sprintf("artist-%03d", a),
			Name: fmt.Sprintf("Artist %03d", a),
		}
		dump.Artists = append(dump.Artists, artist)

		for b := 0; b < cfg.AlbumsPerArtist; b++ {
			album := model.Album{
				ID:          fmt.Sprintf("%s-album-%02d", artist.ID, b),
				Name:        fmt.Sprintf("Album %02d by %s", b, artist.Name),
				ArtistID:    artist.ID,
				ReleaseDate: randomReleaseDate(rng),
				Genre:       genre,
			}
			dump.Albums = append(dump.Albums, album)

			for t := 0; t < cfg.TracksPerAlbum; t++ {
				dump.Tracks = append(dump.Tracks, model.Track{
					ID:              fmt.Sprintf("%s-track-%02d", album.ID, t),
					Name:            fmt.Sprintf("Track %02d", t),
					ArtistID:        artist.ID,
					AlbumID:         album.ID,
					DurationSeconds: minTrackSeconds + rng.Intn(trackSecondsSpan),
					AudioURL:        fmt.Sprintf("https://audio.example/%s-%02d.mp3", album.ID, t),
					CategorySlug:    genre,
					GenreKey:        genre,
					Embedding:       clusteredVector(rng, centroids[genre]),
				})
			}
		}
	}

	logger.Get().Info(ctx, "generated synthetic catalog",
		logger.Int("artists", len(dump.Artists)),
		logger.Int("albums", len(dump.Albums)),
		logger.Int("tracks", len(dump.Tracks)),
	)
	return dump
}

// randomUnitVector samples a direction uniformly-ish via gaussian components.
func randomUnitVector(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	if u := vector.UnitNormalize(v); u != nil {
		return u
	}
	// Degenerate draw; fall back to a basis vector.
	v[0] = 1.0
	return v
}

// clusteredVector perturbs a centroid with bounded noise and re-normalizes.
func clusteredVector(rng *rand.Rand, centroid []float64) []float64 {
	v := make([]float64, len(centroid))
	for i := range v {
		v[i] = centroid[i] + embeddingNoise*rng.NormFloat64()
	}
	if u := vector.UnitNormalize(v); u != nil {
		return u
	}
	return append([]float64(nil), centroid...)
}

func randomReleaseDate(rng *rand.Rand) string {
	year := oldestReleaseYear + rng.Intn(releaseYearSpan)
	month := 1 + rng.Intn(12)
	day := 1 + rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
