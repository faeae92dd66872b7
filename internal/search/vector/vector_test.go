package vector

import (
	"context"
	"testing"
	"time"

	"amp/internal/domain/object"
	"amp/internal/domain/shared"
	"amp/internal/store"
	"amp/internal/store/memstore"
)

func newObjectWithEmbedding(t *testing.T, vec []float64) *object.Object {
	t.Helper()
	ns, err := shared.NewNamespace("tenant-1", "project-1")
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	obj, err := object.New(shared.NewID(), object.TypeNote, ns, object.Provenance{Agent: "a", Summary: "s"}, nil, time.Now())
	if err != nil {
		t.Fatalf("object.New: %v", err)
	}
	obj.SetEmbedding(vec)
	return obj
}

func TestSearch_RanksByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	closeMatch := newObjectWithEmbedding(t, []float64{1, 0})
	orthogonal := newObjectWithEmbedding(t, []float64{0, 1})
	if err := s.Create(ctx, closeMatch); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, orthogonal); err != nil {
		t.Fatal(err)
	}

	searcher := New(memstore.NewObjectStore(s))
	results, err := searcher.Search(ctx, []float64{1, 0}, store.Filter{}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search results = %d, want 2 (both have embeddings)", len(results))
	}
	if results[0].ObjectID != closeMatch.ID().String() {
		t.Errorf("top result = %s, want the closely aligned vector", results[0].ObjectID)
	}
	if results[0].Score <= results[1].Score {
		t.Error("the aligned vector should score higher than the orthogonal one")
	}
}

func TestSearch_SkipsObjectsWithoutEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ns, _ := shared.NewNamespace("tenant-1", "project-1")
	noEmbedding, err := object.New(shared.NewID(), object.TypeNote, ns, object.Provenance{Agent: "a", Summary: "s"}, nil, time.Now())
	if err != nil {
		t.Fatalf("object.New: %v", err)
	}
	if err := s.Create(ctx, noEmbedding); err != nil {
		t.Fatal(err)
	}

	searcher := New(memstore.NewObjectStore(s))
	results, err := searcher.Search(ctx, []float64{1, 0}, store.Filter{}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("objects without an embedding should never be returned, got %d", len(results))
	}
}

func TestSearch_EmptyQueryEmbeddingDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	searcher := New(memstore.NewObjectStore(s))

	results, err := searcher.Search(ctx, nil, store.Filter{}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("a nil query embedding should degrade to no results, got %v", results)
	}
}
