// Package genre answers "how similar are two genre tags?" from a curated,
// weighted adjacency over a closed tag vocabulary.
package genre

import "strings"

// adjacency is a hand-tuned, mostly symmetric weight table. Keys align with
// catalog category slugs and with the normalized provider genre ids below.
// The table is never mutated after process start, so it is safe to share
// across concurrent calls.
var adjacency = map[string]map[string]float64{
	"metal":            {"metal": 1.0, "rock": 0.85, "punk": 0.6},
	"rock":             {"rock": 1.0, "metal": 0.85, "punk": 0.7, "pop": 0.3},
	"punk":             {"punk": 1.0, "rock": 0.7, "metal": 0.6},
	"pop":              {"pop": 1.0, "dance-electronic": 0.6, "soul": 0.5, "rock": 0.3},
	"dance-electronic": {"dance-electronic": 1.0, "pop": 0.6},
	"rnb":              {"rnb": 1.0, "soul": 0.8, "pop": 0.4},
	"soul":             {"soul": 1.0, "rnb": 0.8, "pop": 0.5},
	"jazz":             {"jazz": 1.0, "blues": 0.8},
	"blues":            {"blues": 1.0, "jazz": 0.8, "rock": 0.3},
	"hip-hop":          {"hip-hop": 1.0, "rnb": 0.6, "pop": 0.4},
	"classical":        {"classical": 1.0, "instrumental": 0.6},
	"instrumental":     {"instrumental": 1.0, "classical": 0.6, "ambient": 0.5},
	"ambient":          {"ambient": 1.0, "instrumental": 0.5, "electronic": 0.4},
	"electronic":       {"electronic": 1.0, "dance-electronic": 0.7, "ambient": 0.4},
}

// providerIDs maps upstream numeric genre codes to graph tags. Catalogs that
// only carry the provider code still resolve into the graph.
var providerIDs = map[string]string{
	"132":  "pop",
	"116":  "hip-hop",
	"152":  "metal",
	"85":   "rock",
	"98":   "folk-and-acoustic",
	"173":  "classical",
	"169":  "jazz",
	"113":  "dance-electronic",
	"165":  "soul",
	"4642": "latin",
	"75":   "reggae",
	"1324": "country",
	"84":   "punk",
}

// Graph exposes similarity lookups over the curated adjacency.
type Graph struct{}

// NewGraph returns the process-wide genre graph. The zero value is also usable.
func NewGraph() *Graph {
	return &Graph{}
}

// Similarity returns a weight in [0, 1] describing how close two genre tags
// are. Equal tags (after normalization) score 1.0. When both directions are
// curated with different weights the larger one wins; a single curated
// direction is used as-is; unknown pairs score 0.0.
func (g *Graph) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	ak := Normalize(a)
	bk := Normalize(b)
	if ak == bk {
		return 1.0
	}

	fromA, okA := adjacency[ak][bk]
	fromB, okB := adjacency[bk][ak]
	switch {
	case okA && okB:
		if fromA > fromB {
			return fromA
		}
		return fromB
	case okA:
		return fromA
	case okB:
		return fromB
	default:
		return 0.0
	}
}

// Keys returns the full tag vocabulary of the graph. Callers use it to expand
// a seed genre into its similarity-qualified neighborhood.
func (g *Graph) Keys() []string {
	keys := make([]string, 0, len(adjacency))
	for k := range adjacency {
		keys = append(keys, k)
	}
	return keys
}

// Neighbors returns every vocabulary tag whose similarity to key meets the
// threshold, excluding key itself.
func (g *Graph) Neighbors(key string, threshold float64) []string {
	nk := Normalize(key)
	var out []string
	for _, cand := range g.Keys() {
		if cand == nk {
			continue
		}
		if g.Similarity(nk, cand) >= threshold {
			out = append(out, cand)
		}
	}
	return out
}

// Normalize lowercases a raw genre value and rewrites known provider numeric
// ids to their graph tag.
func Normalize(raw string) string {
	k := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := providerIDs[k]; ok {
		return mapped
	}
	return k
}
