// Package text implements the field-scoped substring/ranked text scan (C4).
package text

import (
	"context"
	"sort"
	"strings"

	"amp/internal/domain/object"
	"amp/internal/store"
)

// Result pairs an object id with its normalized text-match score.
type Result struct {
	ObjectID string
	Score    float64
}

// fieldWeight encodes the name > title > documentation/content > others
// priority from §4.4.
var fieldWeight = map[string]float64{
	"name":          1.0,
	"title":         0.9,
	"documentation": 0.7,
	"content":       0.7,
	"signature":     0.6,
	"rationale":     0.6,
	"description":   0.6,
	"path":          0.5,
	"summary":       0.4,
}

const defaultWeight = 0.3

// Searcher scans the object store for a query substring.
type Searcher struct {
	objects store.ObjectStore
}

func New(objects store.ObjectStore) *Searcher {
	return &Searcher{objects: objects}
}

// Search matches query case-insensitively against the type-appropriate
// textual projection of each candidate object and returns up to limit
// results ordered by descending score, ties broken by updated_at desc.
func (s *Searcher) Search(ctx context.Context, queryText string, filter store.Filter, limit int) ([]Result, error) {
	q := strings.ToLower(strings.TrimSpace(queryText))
	if q == "" {
		return nil, nil
	}

	candidates, err := s.objects.List(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}

	type scored struct {
		obj   *object.Object
		score float64
	}
	var matches []scored

	for _, obj := range candidates {
		score := scoreObject(obj, q)
		if score > 0 {
			matches = append(matches, scored{obj, score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].obj.UpdatedAt().After(matches[j].obj.UpdatedAt())
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Result, len(matches))
	for i, m := range matches {
		out[i] = Result{ObjectID: m.obj.ID().String(), Score: m.score}
	}
	return out, nil
}

// scoreObject sums field-weighted match counts across the open payload plus
// provenance.summary, normalized into [0,1].
func scoreObject(obj *object.Object, q string) float64 {
	var total, matchedWeight float64

	consider := func(field string, value string) {
		w, ok := fieldWeight[field]
		if !ok {
			w = defaultWeight
		}
		total += w
		if strings.Contains(strings.ToLower(value), q) {
			matchedWeight += w
		}
	}

	for field, v := range obj.Payload() {
		if s, ok := v.(string); ok {
			consider(field, s)
		}
	}
	consider("summary", obj.Provenance().Summary)

	if total == 0 {
		return 0
	}
	score := matchedWeight / total
	if score > 1 {
		score = 1
	}
	return score
}
