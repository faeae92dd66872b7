package retrieval

import (
	"context"
	"testing"
	"time"

	"amp/internal/domain/object"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/graph"
	"amp/internal/search/text"
	"amp/internal/search/vector"
	"amp/internal/store"
	"amp/internal/store/memstore"
)

type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) Embed(ctx context.Context, s string) ([]float64, bool) {
	if vec, ok := f.vectors[s]; ok {
		return vec, true
	}
	return nil, false
}
func (f *fakeEmbedder) Dimension() int { return 2 }

func newOrchestrator(t *testing.T, s *memstore.Store, emb *fakeEmbedder) *Orchestrator {
	t.Helper()
	objStore := memstore.NewObjectStore(s)
	return New(objStore, text.New(objStore), vector.New(objStore), graph.New(memstore.NewRelationshipStore(s)), emb)
}

func seedObject(t *testing.T, s *memstore.Store, content string, vec []float64) *object.Object {
	t.Helper()
	ns, err := shared.NewNamespace("tenant-1", "project-1")
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	obj, err := object.New(shared.NewID(), object.TypeNote, ns, object.Provenance{Agent: "a", Summary: content}, map[string]interface{}{"content": content}, time.Now())
	if err != nil {
		t.Fatalf("object.New: %v", err)
	}
	if vec != nil {
		obj.SetEmbedding(vec)
	}
	if err := s.Create(context.Background(), obj); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return obj
}

func TestQuery_FilterOnlyListsByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedObject(t, s, "first", nil)
	seedObject(t, s, "second", nil)
	orch := newOrchestrator(t, s, &fakeEmbedder{vectors: map[string][]float64{}})

	resp, err := orch.Query(ctx, Request{Filter: store.Filter{TenantID: "tenant-1"}, Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("Total = %d, want 2", resp.Total)
	}
}

func TestQuery_TextOnlySurfacesMatchingObject(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	match := seedObject(t, s, "the build pipeline broke", nil)
	seedObject(t, s, "nothing relevant here", nil)
	orch := newOrchestrator(t, s, &fakeEmbedder{vectors: map[string][]float64{}})

	resp, err := orch.Query(ctx, Request{Text: "build pipeline", Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Object.ID() != match.ID() {
		t.Fatalf("Query results = %+v, want only the matching object", resp.Results)
	}
}

func TestQuery_HybridFusesTextAndVectorSources(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	obj := seedObject(t, s, "deploy rollout notes", []float64{1, 0})
	emb := &fakeEmbedder{vectors: map[string][]float64{"deploy rollout notes": {1, 0}}}
	orch := newOrchestrator(t, s, emb)

	resp, err := orch.Query(ctx, Request{Text: "deploy rollout notes", Hybrid: true, Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("Total = %d, want 1", resp.Total)
	}
	if resp.Results[0].Object.ID() != obj.ID() {
		t.Errorf("hybrid query should surface the seeded object")
	}
	if len(resp.Results[0].Sources) == 0 {
		t.Error("a hybrid hit should record at least one contributing source")
	}
}

func TestQuery_PureGraphTraversal(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedObject(t, s, "a", nil)
	b := seedObject(t, s, "b", nil)

	rel, err := relationship.New(shared.NewID(), relationship.TypeDependsOn, a.ID(), b.ID(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateRelationship(ctx, rel); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}

	orch := newOrchestrator(t, s, &fakeEmbedder{vectors: map[string][]float64{}})
	spec := &graph.Spec{StartNodes: []shared.ID{a.ID()}, Direction: graph.DirectionOutbound, MaxDepth: 3, Algorithm: graph.AlgorithmCollect}

	resp, err := orch.Query(ctx, Request{Graph: spec, Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Object.ID() != b.ID() {
		t.Fatalf("pure graph query results = %+v, want just %v", resp.Results, b.ID())
	}
}

func TestQuery_RespectsLimitAfterFusion(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	for i := 0; i < 5; i++ {
		seedObject(t, s, "shared term present", nil)
	}
	orch := newOrchestrator(t, s, &fakeEmbedder{vectors: map[string][]float64{}})

	resp, err := orch.Query(ctx, Request{Text: "shared term", Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2 after limiting", len(resp.Results))
	}
}
