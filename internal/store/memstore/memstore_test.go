package memstore

import (
	"context"
	"testing"
	"time"

	"amp/internal/domain/object"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/store"
	apperrors "amp/pkg/errors"
)

func newTestObject(t *testing.T, tenant string) *object.Object {
	t.Helper()
	ns, err := shared.NewNamespace(tenant, "project-1")
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	obj, err := object.New(shared.NewID(), object.TypeNote, ns, object.Provenance{Agent: "a", Summary: "s"}, nil, time.Now())
	if err != nil {
		t.Fatalf("object.New: %v", err)
	}
	return obj
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	obj := newTestObject(t, "tenant-1")

	if err := s.Create(ctx, obj); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, obj.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID() != obj.ID() {
		t.Errorf("Get returned id %v, want %v", got.ID(), obj.ID())
	}
}

func TestStore_CreateDuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()
	obj := newTestObject(t, "tenant-1")

	if err := s.Create(ctx, obj); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := s.Create(ctx, obj); !apperrors.IsConflict(err) {
		t.Fatalf("second Create error = %v, want a conflict", err)
	}
}

func TestStore_GetMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Get(ctx, shared.NewID()); !apperrors.IsNotFound(err) {
		t.Fatalf("Get(missing) error = %v, want not_found", err)
	}
}

func TestStore_DeleteCascadesIncidentRelationships(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := newTestObject(t, "tenant-1"), newTestObject(t, "tenant-1")
	if err := s.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	rel, err := relationship.New(shared.NewID(), relationship.TypeDependsOn, a.ID(), b.ID(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateRelationship(ctx, rel); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}

	if err := s.DeleteIncidentTo(ctx, a.ID()); err != nil {
		t.Fatalf("DeleteIncidentTo: %v", err)
	}

	rels, err := s.ListRelationships(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("ListRelationships: %v", err)
	}
	if len(rels) != 0 {
		t.Errorf("expected no relationships after cascade delete, got %d", len(rels))
	}
}

func TestStore_CreateRelationship_RequiresSharedTenant(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := newTestObject(t, "tenant-1"), newTestObject(t, "tenant-2")
	if err := s.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	rel, err := relationship.New(shared.NewID(), relationship.TypeDependsOn, a.ID(), b.ID(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateRelationship(ctx, rel); !apperrors.IsValidation(err) {
		t.Fatalf("expected a validation error for cross-tenant relationship, got %v", err)
	}
}

func TestStore_CreateRelationship_IdempotentByKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := newTestObject(t, "tenant-1"), newTestObject(t, "tenant-1")
	if err := s.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	rel1, _ := relationship.New(shared.NewID(), relationship.TypeDependsOn, a.ID(), b.ID(), time.Now())
	rel2, _ := relationship.New(shared.NewID(), relationship.TypeDependsOn, a.ID(), b.ID(), time.Now())

	first, err := s.CreateRelationship(ctx, rel1)
	if err != nil {
		t.Fatalf("first CreateRelationship: %v", err)
	}
	second, err := s.CreateRelationship(ctx, rel2)
	if err != nil {
		t.Fatalf("second CreateRelationship: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("re-creating the same (type,source,target) should idempotently return the existing relationship")
	}
}

func TestStore_SnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	obj := newTestObject(t, "tenant-1")
	if err := s.Create(ctx, obj); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()

	restored := New()
	restored.Restore(snap)

	got, err := restored.Get(ctx, obj.ID())
	if err != nil {
		t.Fatalf("Get after Restore: %v", err)
	}
	if got.ID() != obj.ID() {
		t.Errorf("restored object id = %v, want %v", got.ID(), obj.ID())
	}
}

func TestStore_LeaseCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	rec := &store.LeaseRecord{ResourceKey: "repo:main", Holder: "agent-1", LeaseID: shared.NewID(), AcquiredAt: now, ExpiresAt: now.Add(time.Minute)}
	ok, err := s.CompareAndSwapLease(ctx, "repo:main", "", rec)
	if err != nil {
		t.Fatalf("CompareAndSwapLease: %v", err)
	}
	if !ok {
		t.Fatal("expected the first CAS against an empty key to succeed")
	}

	other := &store.LeaseRecord{ResourceKey: "repo:main", Holder: "agent-2", LeaseID: shared.NewID(), AcquiredAt: now, ExpiresAt: now.Add(time.Minute)}
	ok, err = s.CompareAndSwapLease(ctx, "repo:main", "", other)
	if err != nil {
		t.Fatalf("CompareAndSwapLease: %v", err)
	}
	if ok {
		t.Error("a CAS with a stale expected id should fail")
	}
}
