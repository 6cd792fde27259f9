package scoring_test

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/scoring"
	"github.com/tidewave/melodex/internal/domain/seed"
	"github.com/tidewave/melodex/internal/domain/vector"
)

// stubCatalog satisfies seed.Catalog with fixed entities for profile tests.
type stubCatalog struct {
	track  *model.Track
	album  *model.Album
	artist *model.Artist
}

func (s *stubCatalog) TrackByID(_ context.Context, _ string) (*model.Track, error) {
	return s.track, nil
}

func (s *stubCatalog) AlbumByID(_ context.Context, _ string) (*model.Album, error) {
	return s.album, nil
}

func (s *stubCatalog) ArtistByID(_ context.Context, _ string) (*model.Artist, error) {
	return s.artist, nil
}

func (s *stubCatalog) TracksByAlbum(_ context.Context, _ string, _ int) ([]model.Track, error) {
	return nil, nil
}

func (s *stubCatalog) TracksByArtist(_ context.Context, _ string, _ int) ([]model.Track, error) {
	return nil, nil
}

func trackProfile(t *testing.T, track *model.Track, album *model.Album, artist *model.Artist) *seed.Profile {
	t.Helper()
	cat := &stubCatalog{track: track, album: album, artist: artist}
	prof, err := seed.Build(context.Background(), cat, seed.Seed{Kind: seed.KindTrack, ID: track.ID})
	if err != nil {
		t.Fatalf("building profile: %v", err)
	}
	return prof
}

func TestMetadataScorerComponents(t *testing.T) {
	convey.Convey("Given a deterministic scorer and a metal track seed", t, func() {
		scorer := scoring.NewMetadataScorer(scoring.WithoutJitter())

		seedTrack := &model.Track{
			ID: "t-seed", ArtistID: "a1", AlbumID: "al1",
			DurationSeconds: 200, CategorySlug: "metal",
		}
		seedAlbum := &model.Album{ID: "al1", ArtistID: "a1", ReleaseDate: "2000-06-01"}
		prof := trackProfile(t, seedTrack, seedAlbum, &model.Artist{ID: "a1"})

		convey.Convey("When the candidate shares artist, album, genre, year and duration", func() {
			cand := &model.Track{ID: "c1", ArtistID: "a1", AlbumID: "al1", DurationSeconds: 200, CategorySlug: "metal"}
			candAlbum := &model.Album{ID: "al1", ReleaseDate: "2000-06-01"}
			score := scorer.Score(cand, candAlbum, prof, seed.KindTrack)

			convey.Convey("Then every component contributes at full weight", func() {
				convey.So(score, convey.ShouldAlmostEqual, 0.5+0.2+0.25+0.1+0.05, 1e-12)
			})
		})

		convey.Convey("When the candidate shares nothing", func() {
			cand := &model.Track{ID: "c2", ArtistID: "a9", AlbumID: "al9", DurationSeconds: 0, CategorySlug: "jazz"}
			score := scorer.Score(cand, nil, prof, seed.KindTrack)

			convey.Convey("Then the score is zero", func() {
				convey.So(score, convey.ShouldEqual, 0.0)
			})
		})

		convey.Convey("When the candidate genre is a graph neighbor", func() {
			cand := &model.Track{ID: "c3", ArtistID: "a9", CategorySlug: "rock"}
			score := scorer.Score(cand, nil, prof, seed.KindTrack)

			convey.Convey("Then the genre component is scaled by the edge weight", func() {
				convey.So(score, convey.ShouldAlmostEqual, 0.25*0.85, 1e-12)
			})
		})

		convey.Convey("When the candidate is 10 years and 90 seconds away", func() {
			cand := &model.Track{ID: "c4", ArtistID: "a9", DurationSeconds: 290, CategorySlug: "jazz"}
			candAlbum := &model.Album{ID: "al5", ReleaseDate: "2010-06-01"}
			score := scorer.Score(cand, candAlbum, prof, seed.KindTrack)

			convey.Convey("Then year and duration decay linearly over their windows", func() {
				convey.So(score, convey.ShouldAlmostEqual, 0.1*0.5+0.05*0.5, 1e-12)
			})
		})
	})
}

func TestArtistSeedDamping(t *testing.T) {
	convey.Convey("Given an artist-seeded score", t, func() {
		scorer := scoring.NewMetadataScorer(scoring.WithoutJitter())
		seedTrack := &model.Track{ID: "t-seed", ArtistID: "a1", CategorySlug: "jazz"}
		prof := trackProfile(t, seedTrack, nil, &model.Artist{ID: "a1"})

		cand := &model.Track{ID: "c1", ArtistID: "a1", CategorySlug: "blues"}

		convey.Convey("Then the same-artist bonus is damped to 0.3x for artist seeds", func() {
			trackScore := scorer.Score(cand, nil, prof, seed.KindTrack)
			artistScore := scorer.Score(cand, nil, prof, seed.KindArtist)
			convey.So(trackScore-artistScore, convey.ShouldAlmostEqual, 0.5*(1-0.3), 1e-12)
		})
	})
}

func TestGenericCategorySkip(t *testing.T) {
	convey.Convey("Given a seed with a generic category and no provider code", t, func() {
		scorer := scoring.NewMetadataScorer(scoring.WithoutJitter())
		seedTrack := &model.Track{ID: "t-seed", ArtistID: "a1", CategorySlug: "pop"}
		prof := trackProfile(t, seedTrack, nil, nil)

		convey.Convey("Then a pop candidate earns no genre component", func() {
			cand := &model.Track{ID: "c1", ArtistID: "a9", CategorySlug: "pop"}
			convey.So(scorer.Score(cand, nil, prof, seed.KindTrack), convey.ShouldEqual, 0.0)
		})
	})

	convey.Convey("Given a seed whose generic category hides a provider code", t, func() {
		scorer := scoring.NewMetadataScorer(scoring.WithoutJitter())
		seedTrack := &model.Track{ID: "t-seed", ArtistID: "a1", CategorySlug: "pop", GenreID: "152"}
		prof := trackProfile(t, seedTrack, nil, nil)

		convey.Convey("Then the provider code drives the genre component instead", func() {
			cand := &model.Track{ID: "c1", ArtistID: "a9", CategorySlug: "metal"}
			convey.So(scorer.Score(cand, nil, prof, seed.KindTrack), convey.ShouldAlmostEqual, 0.25, 1e-12)
		})
	})
}

func TestJitterBounds(t *testing.T) {
	convey.Convey("Given the default jittered scorer", t, func() {
		scorer := scoring.NewMetadataScorer()
		seedTrack := &model.Track{ID: "t-seed", ArtistID: "a1", CategorySlug: "jazz"}
		prof := trackProfile(t, seedTrack, nil, nil)
		cand := &model.Track{ID: "c1", ArtistID: "a9", CategorySlug: "metal"}

		convey.Convey("Then scores stay within the jitter envelope", func() {
			for i := 0; i < 200; i++ {
				score := scorer.Score(cand, nil, prof, seed.KindTrack)
				convey.So(score, convey.ShouldBeGreaterThanOrEqualTo, 0.0)
				convey.So(score, convey.ShouldBeLessThanOrEqualTo, 0.001)
			}
		})
	})
}

func TestZeroWeightScorer(t *testing.T) {
	convey.Convey("Given a zero-weighted scorer", t, func() {
		scorer := scoring.NewMetadataScorer(scoring.WithWeights(0, 0, 0, 0, 0), scoring.WithoutJitter())
		seedTrack := &model.Track{ID: "t-seed", ArtistID: "a1", CategorySlug: "metal", Embedding: []float64{1, 0}}
		prof := trackProfile(t, seedTrack, nil, nil)

		convey.Convey("Then metadata contributes nothing and only embeddings can rank", func() {
			cand := &model.Track{ID: "c1", ArtistID: "a1", CategorySlug: "metal", Embedding: []float64{1, 0}}
			convey.So(scorer.Score(cand, nil, prof, seed.KindTrack), convey.ShouldEqual, 0.0)
			convey.So(vector.Cosine(prof.Embedding(), cand.Embedding), convey.ShouldAlmostEqual, 1.0, 1e-12)
		})
	})
}
