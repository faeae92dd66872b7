package lease

import (
	"context"
	"testing"
	"time"

	"amp/internal/domain/shared"
	"amp/internal/store/memstore"
	apperrors "amp/pkg/errors"
)

func newManagerAt(t *testing.T, now time.Time) *Manager {
	t.Helper()
	s := memstore.New()
	m := NewManager(memstore.NewLeaseStore(s))
	m.now = func() time.Time { return now }
	return m
}

func TestAcquire_FreeKeySucceeds(t *testing.T) {
	ctx := context.Background()
	m := newManagerAt(t, time.Now())

	l, err := m.Acquire(ctx, "repo:main", "agent-x", 60*time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if l.Holder != "agent-x" {
		t.Errorf("Holder = %q, want agent-x", l.Holder)
	}
}

func TestAcquire_ConflictsWithDifferentHolder(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := newManagerAt(t, now)

	if _, err := m.Acquire(ctx, "repo:main", "agent-x", 60*time.Second); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := m.Acquire(ctx, "repo:main", "agent-y", 60*time.Second); !apperrors.IsLeaseConflict(err) {
		t.Fatalf("second Acquire error = %v, want lease_conflict", err)
	}
}

func TestAcquire_SameHolderBehavesAsRenew(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := newManagerAt(t, now)

	first, err := m.Acquire(ctx, "repo:main", "agent-x", 60*time.Second)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	second, err := m.Acquire(ctx, "repo:main", "agent-x", 120*time.Second)
	if err != nil {
		t.Fatalf("second Acquire by same holder: %v", err)
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Error("re-acquiring as the current holder should extend expires_at")
	}
}

func TestAcquire_ExpiredLeaseIsReplaceable(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := newManagerAt(t, now)

	if _, err := m.Acquire(ctx, "repo:main", "agent-x", 1*time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	m.now = func() time.Time { return now.Add(2 * time.Second) }
	l, err := m.Acquire(ctx, "repo:main", "agent-y", 60*time.Second)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if l.Holder != "agent-y" {
		t.Errorf("Holder after expiry = %q, want agent-y", l.Holder)
	}
}

func TestAcquire_ClampsTTLToMax(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := newManagerAt(t, now)

	l, err := m.Acquire(ctx, "repo:main", "agent-x", 10*time.Hour)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if l.ExpiresAt.Sub(now) > MaxTTL {
		t.Errorf("ExpiresAt should be clamped to MaxTTL, got %v", l.ExpiresAt.Sub(now))
	}
}

func TestRenew_RejectsWrongLeaseID(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := newManagerAt(t, now)

	if _, err := m.Acquire(ctx, "repo:main", "agent-x", 60*time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := m.Renew(ctx, "repo:main", shared.NewID(), 60*time.Second); !apperrors.IsLeaseExpired(err) {
		t.Fatalf("Renew with wrong lease id error = %v, want lease_expired", err)
	}
}

func TestRelease_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newManagerAt(t, time.Now())

	l, err := m.Acquire(ctx, "repo:main", "agent-x", 60*time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := m.Release(ctx, "repo:main", l.LeaseID); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := m.Release(ctx, "repo:main", l.LeaseID); err != nil {
		t.Fatalf("second Release (already released) should be a no-op, got %v", err)
	}
}

func TestStatus_ReflectsHeldAndFree(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := newManagerAt(t, now)

	status, err := m.Status(ctx, "repo:main")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Held {
		t.Error("an untouched resource key should not be held")
	}

	if _, err := m.Acquire(ctx, "repo:main", "agent-x", 60*time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	status, err = m.Status(ctx, "repo:main")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Held || status.Holder != "agent-x" {
		t.Errorf("Status = %+v, want held by agent-x", status)
	}
}
