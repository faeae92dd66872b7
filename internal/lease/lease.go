// Package lease implements the renewable, exclusive resource-key coordination
// primitive (C8), grounded on the teacher's DynamoDB conditional-write
// distributed lock but generalized over any store.LeaseStore backend.
package lease

import (
	"context"
	"time"

	"amp/internal/domain/shared"
	"amp/internal/store"
	apperrors "amp/pkg/errors"
)

const (
	DefaultTTL = 60 * time.Second
	MaxTTL     = 3600 * time.Second
)

// Lease is the caller-facing view of an acquired or renewed lease.
type Lease struct {
	ResourceKey string    `json:"resource_key"`
	LeaseID     shared.ID `json:"lease_id"`
	Holder      string    `json:"holder"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Status is the observational view returned by Status(resource_key).
type Status struct {
	ResourceKey string     `json:"resource_key"`
	Held        bool       `json:"held"`
	Holder      string     `json:"holder,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Manager implements acquire/renew/release/status over a LeaseStore.
type Manager struct {
	store store.LeaseStore
	now   func() time.Time
}

func NewManager(s store.LeaseStore) *Manager {
	return &Manager{store: s, now: time.Now}
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

func isExpired(rec *store.LeaseRecord, now time.Time) bool {
	return rec == nil || !rec.ExpiresAt.After(now)
}

// Acquire claims resourceKey for holder. If the key is free (no record, or
// an expired one) it inserts a fresh lease. If held by the same holder it
// behaves as a renew. If held by a different, non-expired holder it fails
// with LeaseConflict.
func (m *Manager) Acquire(ctx context.Context, resourceKey, holder string, ttl time.Duration) (*Lease, error) {
	ttl = clampTTL(ttl)
	now := m.now()

	current, err := m.store.Get(ctx, resourceKey)
	if err != nil {
		return nil, err
	}

	expectedID := ""
	if current != nil && !isExpired(current, now) {
		if current.Holder != holder {
			return nil, apperrors.NewLeaseConflict(resourceKey, current.Holder)
		}
		expectedID = current.LeaseID.String()
	} else if current != nil {
		expectedID = current.LeaseID.String()
	}

	newRec := &store.LeaseRecord{
		ResourceKey: resourceKey,
		Holder:      holder,
		LeaseID:     shared.NewID(),
		AcquiredAt:  now,
		ExpiresAt:   now.Add(ttl),
	}
	if current != nil && !isExpired(current, now) {
		// Same holder: keep the existing lease, as Renew does.
		newRec.LeaseID = current.LeaseID
		newRec.AcquiredAt = current.AcquiredAt
	}

	ok, err := m.store.CompareAndSwap(ctx, resourceKey, expectedID, newRec)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race; re-read to report who holds it now.
		latest, _ := m.store.Get(ctx, resourceKey)
		holderName := "unknown"
		if latest != nil {
			holderName = latest.Holder
		}
		return nil, apperrors.NewLeaseConflict(resourceKey, holderName)
	}

	return &Lease{ResourceKey: resourceKey, LeaseID: newRec.LeaseID, Holder: holder, AcquiredAt: newRec.AcquiredAt, ExpiresAt: newRec.ExpiresAt}, nil
}

// Renew extends expires_at for an unexpired lease matching leaseID.
func (m *Manager) Renew(ctx context.Context, resourceKey string, leaseID shared.ID, ttl time.Duration) (*Lease, error) {
	ttl = clampTTL(ttl)
	now := m.now()

	current, err := m.store.Get(ctx, resourceKey)
	if err != nil {
		return nil, err
	}
	if current == nil || !current.LeaseID.Equals(leaseID) || isExpired(current, now) {
		return nil, apperrors.NewLeaseExpired(leaseID.String())
	}

	newRec := &store.LeaseRecord{
		ResourceKey: resourceKey,
		Holder:      current.Holder,
		LeaseID:     current.LeaseID,
		AcquiredAt:  current.AcquiredAt,
		ExpiresAt:   now.Add(ttl),
	}
	ok, err := m.store.CompareAndSwap(ctx, resourceKey, leaseID.String(), newRec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewLeaseExpired(leaseID.String())
	}
	return &Lease{ResourceKey: resourceKey, LeaseID: newRec.LeaseID, Holder: newRec.Holder, AcquiredAt: newRec.AcquiredAt, ExpiresAt: newRec.ExpiresAt}, nil
}

// Release removes the lease iff leaseID matches; a mismatched or already
// released lease is a no-op, never an error (idempotent per §8).
func (m *Manager) Release(ctx context.Context, resourceKey string, leaseID shared.ID) error {
	return m.store.Delete(ctx, resourceKey, leaseID)
}

// Status reports the current observational state of a resource key.
func (m *Manager) Status(ctx context.Context, resourceKey string) (*Status, error) {
	now := m.now()
	current, err := m.store.Get(ctx, resourceKey)
	if err != nil {
		return nil, err
	}
	if isExpired(current, now) {
		return &Status{ResourceKey: resourceKey, Held: false}, nil
	}
	return &Status{ResourceKey: resourceKey, Held: true, Holder: current.Holder, ExpiresAt: &current.ExpiresAt}, nil
}
