package seed_test

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/seed"
)

// fakeCatalog serves a tiny fixed catalog keyed by id.
type fakeCatalog struct {
	tracks  map[string]*model.Track
	albums  map[string]*model.Album
	artists map[string]*model.Artist

	notFound error
}

func (f *fakeCatalog) TrackByID(_ context.Context, id string) (*model.Track, error) {
	if t, ok := f.tracks[id]; ok {
		return t, nil
	}
	return nil, f.notFound
}

func (f *fakeCatalog) AlbumByID(_ context.Context, id string) (*model.Album, error) {
	if a, ok := f.albums[id]; ok {
		return a, nil
	}
	return nil, f.notFound
}

func (f *fakeCatalog) ArtistByID(_ context.Context, id string) (*model.Artist, error) {
	if a, ok := f.artists[id]; ok {
		return a, nil
	}
	return nil, f.notFound
}

func (f *fakeCatalog) TracksByAlbum(_ context.Context, albumID string, limit int) ([]model.Track, error) {
	var out []model.Track
	for _, t := range f.tracks {
		if t.AlbumID == albumID && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeCatalog) TracksByArtist(_ context.Context, artistID string, limit int) ([]model.Track, error) {
	var out []model.Track
	for _, t := range f.tracks {
		if t.ArtistID == artistID && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const errMissing = sentinelError("entity not found")

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		tracks: map[string]*model.Track{
			"t1": {
				ID: "t1", ArtistID: "ar1", AlbumID: "al1",
				DurationSeconds: 240, CategorySlug: "metal", GenreKey: "metal", GenreID: "152",
				Embedding: []float64{1, 0},
			},
			"t2": {ID: "t2", ArtistID: "ar1", AlbumID: "al1", Embedding: []float64{0, 1}},
			"t3": {ID: "t3", ArtistID: "ar1", AlbumID: "al1"},
		},
		albums: map[string]*model.Album{
			"al1": {ID: "al1", ArtistID: "ar1", ReleaseDate: "1994-03-08"},
		},
		artists: map[string]*model.Artist{
			"ar1": {ID: "ar1", Name: "Crash Meridian"},
		},
		notFound: errMissing,
	}
}

func TestBuildFromTrack(t *testing.T) {
	convey.Convey("Given a track seed with joined album and artist", t, func() {
		cat := newFakeCatalog()
		prof, err := seed.Build(context.Background(), cat, seed.Seed{Kind: seed.KindTrack, ID: "t1"})

		convey.So(err, convey.ShouldBeNil)
		convey.So(prof.Kind, convey.ShouldEqual, seed.KindTrack)

		convey.Convey("Then every derived attribute resolves from the joins", func() {
			artistID, ok := prof.ArtistID()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(artistID, convey.ShouldEqual, "ar1")

			albumID, ok := prof.AlbumID()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(albumID, convey.ShouldEqual, "al1")

			year, ok := prof.ReleaseYear()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(year, convey.ShouldEqual, 1994)

			dur, ok := prof.DurationSeconds()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(dur, convey.ShouldEqual, 240)

			slug, ok := prof.CategorySlug()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(slug, convey.ShouldEqual, "metal")

			genreID, ok := prof.GenreID()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(genreID, convey.ShouldEqual, "152")
		})

		convey.Convey("Then the anchor embedding is the track's own vector", func() {
			convey.So(prof.Embedding(), convey.ShouldResemble, []float64{1, 0})
		})
	})
}

func TestBuildFromAlbum(t *testing.T) {
	convey.Convey("Given an album seed", t, func() {
		cat := newFakeCatalog()
		prof, err := seed.Build(context.Background(), cat, seed.Seed{Kind: seed.KindAlbum, ID: "al1"})

		convey.So(err, convey.ShouldBeNil)
		convey.So(prof.Kind, convey.ShouldEqual, seed.KindAlbum)

		convey.Convey("Then the artist joins through the album", func() {
			artistID, ok := prof.ArtistID()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(artistID, convey.ShouldEqual, "ar1")
		})

		convey.Convey("Then the embedding is the mean of the album tracks that have one", func() {
			emb := prof.Embedding()
			convey.So(emb, convey.ShouldHaveLength, 2)
			convey.So(emb[0], convey.ShouldAlmostEqual, emb[1], 1e-12)
		})

		convey.Convey("Then track-only attributes stay unknown", func() {
			_, ok := prof.CategorySlug()
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = prof.DurationSeconds()
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestBuildFromArtist(t *testing.T) {
	convey.Convey("Given an artist seed", t, func() {
		cat := newFakeCatalog()
		prof, err := seed.Build(context.Background(), cat, seed.Seed{Kind: seed.KindArtist, ID: "ar1"})

		convey.So(err, convey.ShouldBeNil)
		convey.So(prof.Kind, convey.ShouldEqual, seed.KindArtist)

		convey.Convey("Then the artist id resolves without a track join", func() {
			artistID, ok := prof.ArtistID()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(artistID, convey.ShouldEqual, "ar1")

			_, ok = prof.AlbumID()
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then tracks lacking embeddings are skipped in the synthesis", func() {
			convey.So(prof.Embedding(), convey.ShouldHaveLength, 2)
		})
	})
}

func TestBuildNotFound(t *testing.T) {
	convey.Convey("Given an anchor id the catalog does not know", t, func() {
		cat := newFakeCatalog()

		convey.Convey("Then the catalog error passes through unchanged", func() {
			for _, kind := range []seed.Kind{seed.KindTrack, seed.KindAlbum, seed.KindArtist} {
				prof, err := seed.Build(context.Background(), cat, seed.Seed{Kind: kind, ID: "nope"})
				convey.So(prof, convey.ShouldBeNil)
				convey.So(err, convey.ShouldEqual, errMissing)
			}
		})
	})
}

func TestParseKind(t *testing.T) {
	convey.Convey("Given wire names for seed kinds", t, func() {
		convey.Convey("Then known names round-trip", func() {
			for _, name := range []string{"track", "album", "artist"} {
				k, err := seed.ParseKind(name)
				convey.So(err, convey.ShouldBeNil)
				convey.So(k.String(), convey.ShouldEqual, name)
			}
		})

		convey.Convey("Then unknown names are rejected", func() {
			_, err := seed.ParseKind("playlist")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestParseYear(t *testing.T) {
	convey.Convey("Given assorted release date formats", t, func() {
		cases := []struct {
			date string
			year int
			ok   bool
		}{
			{"2001-09-11", 2001, true},
			{"1987", 1987, true},
			{"1987-13-99", 1987, true},
			{"", 0, false},
			{"abcd", 0, false},
			{"12", 0, false},
		}
		for _, c := range cases {
			y, ok := seed.ParseYear(c.date)
			convey.So(ok, convey.ShouldEqual, c.ok)
			if c.ok {
				convey.So(y, convey.ShouldEqual, c.year)
			}
		}
	})
}
