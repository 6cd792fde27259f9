package vector_test

import (
	"math"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tidewave/melodex/internal/domain/vector"
)

func TestCosine(t *testing.T) {
	convey.Convey("Given cosine similarity", t, func() {
		convey.Convey("Then identical non-zero vectors score 1", func() {
			a := []float64{0.3, -0.2, 0.9}
			convey.So(vector.Cosine(a, a), convey.ShouldAlmostEqual, 1.0, 1e-12)
		})

		convey.Convey("Then it is symmetric", func() {
			a := []float64{1, 2, 3}
			b := []float64{-2, 0.5, 4}
			convey.So(vector.Cosine(a, b), convey.ShouldEqual, vector.Cosine(b, a))
		})

		convey.Convey("Then orthogonal vectors score 0", func() {
			convey.So(vector.Cosine([]float64{1, 0}, []float64{0, 1}), convey.ShouldAlmostEqual, 0.0, 1e-12)
		})

		convey.Convey("Then length drift falls back to the shared prefix", func() {
			a := []float64{1, 0, 99}
			b := []float64{1, 0}
			convey.So(vector.Cosine(a, b), convey.ShouldAlmostEqual, vector.Cosine([]float64{1, 0}, b), 1e-12)
		})

		convey.Convey("Then empty or zero-magnitude inputs score 0", func() {
			convey.So(vector.Cosine(nil, []float64{1}), convey.ShouldEqual, 0.0)
			convey.So(vector.Cosine([]float64{0, 0}, []float64{1, 1}), convey.ShouldEqual, 0.0)
		})
	})
}

func TestUnitNormalize(t *testing.T) {
	convey.Convey("Given unit normalization", t, func() {
		convey.Convey("Then the result has norm 1", func() {
			u := vector.UnitNormalize([]float64{3, 4})
			convey.So(u, convey.ShouldResemble, []float64{0.6, 0.8})
		})

		convey.Convey("Then a zero vector yields nil", func() {
			convey.So(vector.UnitNormalize([]float64{0, 0}), convey.ShouldBeNil)
			convey.So(vector.UnitNormalize(nil), convey.ShouldBeNil)
		})
	})
}

func TestMean(t *testing.T) {
	convey.Convey("Given mean embeddings", t, func() {
		convey.Convey("Then the mean is unit-normalized", func() {
			m := vector.Mean([][]float64{{1, 0}, {0, 1}})
			convey.So(m, convey.ShouldNotBeNil)
			norm := math.Hypot(m[0], m[1])
			convey.So(norm, convey.ShouldAlmostEqual, 1.0, 1e-12)
			convey.So(m[0], convey.ShouldAlmostEqual, m[1], 1e-12)
		})

		convey.Convey("Then empty vectors are skipped", func() {
			m := vector.Mean([][]float64{nil, {1, 0}})
			convey.So(m, convey.ShouldResemble, []float64{1, 0})
		})

		convey.Convey("Then nothing usable yields nil", func() {
			convey.So(vector.Mean(nil), convey.ShouldBeNil)
			convey.So(vector.Mean([][]float64{nil, {}}), convey.ShouldBeNil)
		})
	})
}

func TestWeightedMean(t *testing.T) {
	convey.Convey("Given weighted mean embeddings", t, func() {
		convey.Convey("Then weights bias the direction", func() {
			m := vector.WeightedMean([][]float64{{1, 0}, {0, 1}}, []float64{3, 1})
			convey.So(m, convey.ShouldNotBeNil)
			convey.So(m[0], convey.ShouldBeGreaterThan, m[1])
		})

		convey.Convey("Then non-positive weights drop their vector", func() {
			m := vector.WeightedMean([][]float64{{1, 0}, {0, 1}}, []float64{0, 2})
			convey.So(m, convey.ShouldResemble, []float64{0, 1})
		})

		convey.Convey("Then dimensionality drift uses the shared minimum", func() {
			m := vector.WeightedMean([][]float64{{1, 0, 5}, {1, 0}}, []float64{1, 1})
			convey.So(len(m), convey.ShouldEqual, 2)
		})

		convey.Convey("Then zero total weight yields nil", func() {
			convey.So(vector.WeightedMean([][]float64{{1, 0}}, []float64{0}), convey.ShouldBeNil)
		})
	})
}
