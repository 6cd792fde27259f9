// Package vector provides the embedding math shared by the recommendation
// engines: cosine similarity, unit normalization, and mean vectors.
//
// All comparisons use the shared-minimum length of the vectors involved;
// catalog ingestion batches are not guaranteed to agree on dimensionality.
package vector

import "math"

// Cosine returns the cosine similarity of a and b over their shared-minimum
// length. A zero-length or zero-magnitude input yields 0.0.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0.0
	}

	var dot, aNorm, bNorm float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		aNorm += a[i] * a[i]
		bNorm += b[i] * b[i]
	}

	den := math.Sqrt(aNorm) * math.Sqrt(bNorm)
	if den <= 0.0 {
		return 0.0
	}
	return dot / den
}

// UnitNormalize divides vec by its Euclidean norm, returning a fresh slice.
// It returns nil when the norm is not positive, signalling "no usable vector".
func UnitNormalize(vec []float64) []float64 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm <= 0.0 {
		return nil
	}

	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// Mean averages each dimension across the given vectors over their
// shared-minimum length and unit-normalizes the result. Empty vectors are
// skipped; nil is returned when nothing usable remains.
func Mean(vecs [][]float64) []float64 {
	weights := make([]float64, len(vecs))
	for i := range weights {
		weights[i] = 1.0
	}
	return WeightedMean(vecs, weights)
}

// WeightedMean averages each dimension across the given vectors using the
// paired weights, over the shared-minimum length, then unit-normalizes.
// Vectors with non-positive weight or no data are skipped; nil is returned
// when no usable vector remains or the total weight is not positive.
func WeightedMean(vecs [][]float64, weights []float64) []float64 {
	minLen := -1
	var wSum float64
	for i, v := range vecs {
		if i >= len(weights) || weights[i] <= 0.0 || len(v) == 0 {
			continue
		}
		if minLen < 0 || len(v) < minLen {
			minLen = len(v)
		}
		wSum += weights[i]
	}
	if minLen < 0 || wSum <= 0.0 {
		return nil
	}

	avg := make([]float64, minLen)
	for i, v := range vecs {
		if i >= len(weights) || weights[i] <= 0.0 || len(v) == 0 {
			continue
		}
		for d := 0; d < minLen; d++ {
			avg[d] += v[d] * weights[i]
		}
	}
	for d := range avg {
		avg[d] /= wSum
	}

	return UnitNormalize(avg)
}
