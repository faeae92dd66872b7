// Package store defines the backing-store abstractions for objects,
// relationships, and leases, generalized from the teacher's
// database-agnostic repository interface to the engine's single-record and
// compare-and-set semantics.
package store

import (
	"context"
	"time"

	"amp/internal/domain/object"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
)

// Filter mirrors the abstractions.Filter shape, narrowed to the
// tenant/project/type/time predicates named in spec §4.4.
type Filter struct {
	TenantID      string
	ProjectID     string
	Types         []object.Type
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
}

// Matches reports whether an object satisfies every set predicate.
func (f Filter) Matches(o *object.Object) bool {
	if f.TenantID != "" && o.Namespace().TenantID != f.TenantID {
		return false
	}
	if f.ProjectID != "" && o.Namespace().ProjectID != f.ProjectID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == o.Type() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CreatedAfter != nil && o.CreatedAt().Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && o.CreatedAt().After(*f.CreatedBefore) {
		return false
	}
	if f.UpdatedAfter != nil && o.UpdatedAt().Before(*f.UpdatedAfter) {
		return false
	}
	return true
}

// BatchResult is the per-item outcome of a best-effort batch create (§4.1).
type BatchResult struct {
	ID     string
	Status string // "created" | "failed"
	Error  string `json:"error,omitempty"`
}

// ObjectStore is the C1 persistence port.
type ObjectStore interface {
	Create(ctx context.Context, obj *object.Object) error
	CreateBatch(ctx context.Context, objs []*object.Object) []BatchResult
	Get(ctx context.Context, id shared.ID) (*object.Object, error)
	Update(ctx context.Context, id shared.ID, patch map[string]interface{}, now time.Time) (*object.Object, bool, error)
	Delete(ctx context.Context, id shared.ID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*object.Object, error)
	// SetEmbedding attaches a dense vector to an already-stored object,
	// serialized the same way as Update so a background embedding request
	// never races a concurrent reader of the same id (§5).
	SetEmbedding(ctx context.Context, id shared.ID, vec []float64) error
}

// RelationshipStore is the C2 persistence port.
type RelationshipStore interface {
	Create(ctx context.Context, r *relationship.Relationship) (*relationship.Relationship, error)
	List(ctx context.Context, sourceID, targetID *shared.ID, relType *relationship.Type) ([]*relationship.Relationship, error)
	Delete(ctx context.Context, id shared.ID) error
	DeleteWhere(ctx context.Context, source, target *shared.ID, relType *relationship.Type) error
	// DeleteIncidentTo removes every edge touching objID, used on object delete cascade.
	DeleteIncidentTo(ctx context.Context, objID shared.ID) error
}

// LeaseRecord is the persisted shape of a lease (§4.8).
type LeaseRecord struct {
	ResourceKey string
	Holder      string
	LeaseID     shared.ID
	AcquiredAt  time.Time
	ExpiresAt   time.Time
}

// LeaseStore is the C8 persistence port: a single-record compare-and-set
// surface, grounded on the teacher's DynamoDB conditional-write lock.
type LeaseStore interface {
	// Get returns the current record for a resource key, or nil if none exists.
	Get(ctx context.Context, resourceKey string) (*LeaseRecord, error)
	// CompareAndSwap writes newRecord iff the stored record matches expectedLeaseID
	// (empty string meaning "no record exists"; the dynamodb store also lets an
	// empty string match an expired record, memstore does not). Returns false on
	// conflict without error.
	CompareAndSwap(ctx context.Context, resourceKey string, expectedLeaseID string, newRecord *LeaseRecord) (bool, error)
	// Delete removes the record iff its lease id matches; no-op otherwise.
	Delete(ctx context.Context, resourceKey string, leaseID shared.ID) error
}
