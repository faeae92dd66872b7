// Package vector implements the k-NN cosine-similarity search over the
// embedding index (C5).
package vector

import (
	"context"
	"math"
	"sort"

	"amp/internal/store"
)

type Result struct {
	ObjectID string
	Score    float64 // rescaled to [0,1] via (cosine+1)/2
}

type Searcher struct {
	objects store.ObjectStore
}

func New(objects store.ObjectStore) *Searcher {
	return &Searcher{objects: objects}
}

// Search returns the top limit objects by cosine similarity to
// queryEmbedding among non-null embeddings matching filter. An empty or nil
// queryEmbedding degrades to an empty result rather than an error, per
// §4.5's "cannot be produced" graceful-degradation rule.
func (s *Searcher) Search(ctx context.Context, queryEmbedding []float64, filter store.Filter, limit int) ([]Result, error) {
	if len(queryEmbedding) == 0 {
		return nil, nil
	}

	candidates, err := s.objects.List(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, obj := range candidates {
		emb := obj.Embedding()
		if len(emb) == 0 || len(emb) != len(queryEmbedding) {
			continue
		}
		cos := cosineSimilarity(queryEmbedding, emb)
		results = append(results, Result{ObjectID: obj.ID().String(), Score: (cos + 1) / 2})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
