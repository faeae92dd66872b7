package retrieval

import (
	"sort"

	"amp/internal/graph"
)

// rrfConstant is the k in RRF(d) = Σ w_i / (k + rank_i(d)), fixed at 60 per
// spec §4.7 (scale-free rank fusion so cosine and BM25-like scores never mix).
const rrfConstant = 60.0

// Weights configures the per-source contribution to the fused score.
type Weights struct {
	Vector float64
	Text   float64
	Graph  float64
}

// DefaultWeights matches spec §4.7's default (vector=0.4, text=0.3, graph=0.3).
var DefaultWeights = Weights{Vector: 0.4, Text: 0.3, Graph: 0.3}

// rankedList is a caller's ranked ids for one retrieval source, 1-indexed by
// position (position 0 in the slice = rank 1).
type rankedList []string

// fusedResult is one document's Reciprocal Rank Fusion outcome. Depth/Path
// are only populated when the document was contributed by the graph branch.
type fusedResult struct {
	ObjectID string
	Score    float64
	Sources  []string
	Ranks    map[string]int
	Depth    *int
	Path     []graph.Step
}

// fuse computes the RRF score for the union of documents appearing in any of
// the three named lists, and returns them sorted by descending score (ties
// broken by the caller's tiebreak function, so fusion stays a pure function
// of its inputs per §8's testable-property requirement).
func fuse(vectorList, textList rankedList, graphHits []graph.Hit, w Weights, tiebreak func(a, b string) bool) []fusedResult {
	scores := make(map[string]*fusedResult)

	get := func(id string) *fusedResult {
		r, ok := scores[id]
		if !ok {
			r = &fusedResult{ObjectID: id, Ranks: make(map[string]int)}
			scores[id] = r
		}
		return r
	}

	add := func(list rankedList, weight float64, source string) {
		for i, id := range list {
			rank := i + 1
			r := get(id)
			r.Score += weight / (rrfConstant + float64(rank))
			r.Sources = append(r.Sources, source)
			r.Ranks[source] = rank
		}
	}

	add(vectorList, w.Vector, "vector")
	add(textList, w.Text, "text")

	for i, h := range graphHits {
		rank := i + 1
		r := get(h.ObjectID.String())
		r.Score += w.Graph / (rrfConstant + float64(rank))
		r.Sources = append(r.Sources, "graph")
		r.Ranks["graph"] = rank
		depth := h.Depth
		r.Depth = &depth
		r.Path = h.Path
	}

	out := make([]fusedResult, 0, len(scores))
	for _, r := range scores {
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if tiebreak != nil {
			return tiebreak(out[i].ObjectID, out[j].ObjectID)
		}
		return out[i].ObjectID < out[j].ObjectID
	})

	return out
}
