package genre_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tidewave/melodex/internal/domain/genre"
)

func TestGraphSimilarity(t *testing.T) {
	convey.Convey("Given the curated genre graph", t, func() {
		g := genre.NewGraph()

		convey.Convey("Then equal tags score 1.0 regardless of case", func() {
			convey.So(g.Similarity("metal", "metal"), convey.ShouldEqual, 1.0)
			convey.So(g.Similarity("Metal", "METAL"), convey.ShouldEqual, 1.0)
		})

		convey.Convey("Then curated pairs use the maximum of both directions", func() {
			convey.So(g.Similarity("rock", "metal"), convey.ShouldEqual, 0.85)
			convey.So(g.Similarity("metal", "rock"), convey.ShouldEqual, 0.85)
		})

		convey.Convey("Then unknown pairs score 0.0", func() {
			convey.So(g.Similarity("metal", "jazz"), convey.ShouldEqual, 0.0)
			convey.So(g.Similarity("metal", "no-such-tag"), convey.ShouldEqual, 0.0)
		})

		convey.Convey("Then empty inputs score 0.0", func() {
			convey.So(g.Similarity("", "metal"), convey.ShouldEqual, 0.0)
			convey.So(g.Similarity("metal", ""), convey.ShouldEqual, 0.0)
		})

		convey.Convey("Then every pair stays within [0, 1] and self-similarity is 1.0", func() {
			keys := g.Keys()
			convey.So(len(keys), convey.ShouldBeGreaterThan, 0)
			for _, a := range keys {
				convey.So(g.Similarity(a, a), convey.ShouldEqual, 1.0)
				for _, b := range keys {
					sim := g.Similarity(a, b)
					convey.So(sim, convey.ShouldBeGreaterThanOrEqualTo, 0.0)
					convey.So(sim, convey.ShouldBeLessThanOrEqualTo, 1.0)
					convey.So(sim, convey.ShouldEqual, g.Similarity(b, a))
				}
			}
		})
	})
}

func TestGraphNormalization(t *testing.T) {
	convey.Convey("Given provider numeric genre codes", t, func() {
		g := genre.NewGraph()

		convey.Convey("Then codes resolve to their graph tags", func() {
			convey.So(genre.Normalize("132"), convey.ShouldEqual, "pop")
			convey.So(genre.Normalize("152"), convey.ShouldEqual, "metal")
			convey.So(genre.Normalize("85"), convey.ShouldEqual, "rock")
		})

		convey.Convey("Then a code and its tag are equal under similarity", func() {
			convey.So(g.Similarity("152", "metal"), convey.ShouldEqual, 1.0)
			convey.So(g.Similarity("85", "metal"), convey.ShouldEqual, 0.85)
		})

		convey.Convey("Then unknown values lowercase untouched", func() {
			convey.So(genre.Normalize("  Shoegaze "), convey.ShouldEqual, "shoegaze")
		})
	})
}

func TestGraphNeighbors(t *testing.T) {
	convey.Convey("Given a neighborhood expansion at 0.45", t, func() {
		g := genre.NewGraph()
		neighbors := g.Neighbors("metal", 0.45)

		convey.Convey("Then close genres are included and the key itself is not", func() {
			convey.So(neighbors, convey.ShouldContain, "rock")
			convey.So(neighbors, convey.ShouldContain, "punk")
			convey.So(neighbors, convey.ShouldNotContain, "metal")
			convey.So(neighbors, convey.ShouldNotContain, "jazz")
		})
	})
}

func TestGenericCategories(t *testing.T) {
	convey.Convey("Given the generic category set", t, func() {
		convey.Convey("Then placeholder tags are generic", func() {
			convey.So(genre.IsGenericCategory("pop"), convey.ShouldBeTrue)
			convey.So(genre.IsGenericCategory("unknown"), convey.ShouldBeTrue)
			convey.So(genre.IsGenericCategory("misc"), convey.ShouldBeTrue)
			convey.So(genre.IsGenericCategory("other"), convey.ShouldBeTrue)
		})

		convey.Convey("Then real tags are not", func() {
			convey.So(genre.IsGenericCategory("metal"), convey.ShouldBeFalse)
			convey.So(genre.IsGenericCategory("jazz"), convey.ShouldBeFalse)
		})
	})
}
