package graph

import (
	"context"
	"testing"
	"time"

	"amp/internal/domain/object"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/store/memstore"
)

// chain builds an n-node chain ids[0]->ids[1]->...->ids[n-1] with
// TypeDependsOn edges in the same tenant and returns the node ids in order.
func chain(t *testing.T, s *memstore.Store, n int) []shared.ID {
	t.Helper()
	ctx := context.Background()
	ns, err := shared.NewNamespace("tenant-1", "project-1")
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}

	ids := make([]shared.ID, n)
	for i := 0; i < n; i++ {
		obj, err := object.New(shared.NewID(), object.TypeNote, ns, object.Provenance{Agent: "a", Summary: "s"}, nil, time.Now())
		if err != nil {
			t.Fatalf("object.New: %v", err)
		}
		if err := s.Create(ctx, obj); err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids[i] = obj.ID()
	}
	for i := 0; i < n-1; i++ {
		rel, err := relationship.New(shared.NewID(), relationship.TypeDependsOn, ids[i], ids[i+1], time.Now())
		if err != nil {
			t.Fatalf("relationship.New: %v", err)
		}
		if _, err := s.CreateRelationship(ctx, rel); err != nil {
			t.Fatalf("CreateRelationship: %v", err)
		}
	}
	return ids
}

func TestSpec_Validate_RejectsOutOfRangeDepth(t *testing.T) {
	if err := (Spec{MaxDepth: 0}).Validate(); err == nil {
		t.Error("max_depth=0 should fail validation")
	}
	if err := (Spec{MaxDepth: 11}).Validate(); err == nil {
		t.Error("max_depth=11 should fail validation")
	}
	if err := (Spec{MaxDepth: 10}).Validate(); err != nil {
		t.Errorf("max_depth=10 should be valid, got %v", err)
	}
}

func TestCollect_VisitsEachReachableNodeOnceAtMinDepth(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ids := chain(t, s, 4)
	e := New(memstore.NewRelationshipStore(s))

	hits, err := e.Run(ctx, Spec{StartNodes: []shared.ID{ids[0]}, Direction: DirectionOutbound, MaxDepth: 10, Algorithm: AlgorithmCollect})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("collect hits = %d, want 3 (all of ids[1:4])", len(hits))
	}

	byDepth := make(map[string]int)
	for _, h := range hits {
		byDepth[h.ObjectID.String()] = h.Depth
	}
	if byDepth[ids[1].String()] != 1 {
		t.Errorf("depth of immediate neighbor = %d, want 1", byDepth[ids[1].String()])
	}
	if byDepth[ids[3].String()] != 3 {
		t.Errorf("depth of 3-hop node = %d, want 3", byDepth[ids[3].String()])
	}
}

func TestCollect_RespectsMaxDepth(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ids := chain(t, s, 4)
	e := New(memstore.NewRelationshipStore(s))

	hits, err := e.Run(ctx, Spec{StartNodes: []shared.ID{ids[0]}, Direction: DirectionOutbound, MaxDepth: 1, Algorithm: AlgorithmCollect})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("collect with max_depth=1 hits = %d, want 1", len(hits))
	}
}

func TestPath_FindsPathsWithoutRepeatingNodes(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ids := chain(t, s, 3)
	e := New(memstore.NewRelationshipStore(s))

	hits, err := e.Run(ctx, Spec{StartNodes: []shared.ID{ids[0]}, Direction: DirectionOutbound, MaxDepth: 5, Algorithm: AlgorithmPath})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, h := range hits {
		seen := make(map[string]bool)
		for _, step := range h.Path {
			if seen[step.NodeID.String()] {
				t.Fatalf("path to %v revisits node %v", h.ObjectID, step.NodeID)
			}
			seen[step.NodeID.String()] = true
		}
	}
}

func TestShortest_RequiresTargetNode(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ids := chain(t, s, 2)
	e := New(memstore.NewRelationshipStore(s))

	if _, err := e.Run(ctx, Spec{StartNodes: []shared.ID{ids[0]}, Direction: DirectionOutbound, MaxDepth: 3, Algorithm: AlgorithmShortest}); err == nil {
		t.Error("shortest without target_node should fail")
	}
}

func TestShortest_ReturnsMinimalHopPath(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ids := chain(t, s, 4)
	e := New(memstore.NewRelationshipStore(s))

	target := ids[3]
	hits, err := e.Run(ctx, Spec{StartNodes: []shared.ID{ids[0]}, Direction: DirectionOutbound, MaxDepth: 10, Algorithm: AlgorithmShortest, TargetNode: &target})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("shortest hits = %d, want exactly 1", len(hits))
	}
	if hits[0].Depth != 3 {
		t.Errorf("shortest depth = %d, want 3", hits[0].Depth)
	}
}

func TestShortest_UnreachableTargetIsNoPath(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ids := chain(t, s, 2)
	e := New(memstore.NewRelationshipStore(s))

	unreachable := shared.NewID()
	if _, err := e.Run(ctx, Spec{StartNodes: []shared.ID{ids[0]}, Direction: DirectionOutbound, MaxDepth: 5, Algorithm: AlgorithmShortest, TargetNode: &unreachable}); err == nil {
		t.Error("expected a no-path error for an unreachable target")
	}
}

func TestNeighbors_DirectionFilterLimitsTraversal(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ids := chain(t, s, 3)
	e := New(memstore.NewRelationshipStore(s))

	hits, err := e.Run(ctx, Spec{StartNodes: []shared.ID{ids[2]}, Direction: DirectionOutbound, MaxDepth: 5, Algorithm: AlgorithmCollect})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("the chain's tail has no outbound edges, got %d hits", len(hits))
	}

	hits, err = e.Run(ctx, Spec{StartNodes: []shared.ID{ids[2]}, Direction: DirectionInbound, MaxDepth: 5, Algorithm: AlgorithmCollect})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("inbound from the chain's tail should reach both prior nodes, got %d", len(hits))
	}
}
