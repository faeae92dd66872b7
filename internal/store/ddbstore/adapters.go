package ddbstore

import (
	"context"

	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/store"
)

// Store's object facet already matches store.ObjectStore directly; the
// relationship and lease facets need thin adapters for the same reason as
// memstore's (differently-named methods on one receiver).

func NewObjectStore(s *Store) store.ObjectStore { return s }

type relationshipFacet struct{ s *Store }

func NewRelationshipStore(s *Store) store.RelationshipStore { return relationshipFacet{s} }

func (f relationshipFacet) Create(ctx context.Context, r *relationship.Relationship) (*relationship.Relationship, error) {
	return f.s.CreateRelationship(ctx, r)
}

func (f relationshipFacet) List(ctx context.Context, sourceID, targetID *shared.ID, relType *relationship.Type) ([]*relationship.Relationship, error) {
	return f.s.ListRelationships(ctx, sourceID, targetID, relType)
}

func (f relationshipFacet) Delete(ctx context.Context, id shared.ID) error {
	return f.s.DeleteRelationship(ctx, id)
}

func (f relationshipFacet) DeleteWhere(ctx context.Context, source, target *shared.ID, relType *relationship.Type) error {
	return f.s.DeleteRelationshipsWhere(ctx, source, target, relType)
}

func (f relationshipFacet) DeleteIncidentTo(ctx context.Context, objID shared.ID) error {
	return f.s.DeleteIncidentTo(ctx, objID)
}

type leaseFacet struct{ s *Store }

func NewLeaseStore(s *Store) store.LeaseStore { return leaseFacet{s} }

func (f leaseFacet) Get(ctx context.Context, resourceKey string) (*store.LeaseRecord, error) {
	return f.s.GetLease(ctx, resourceKey)
}

func (f leaseFacet) CompareAndSwap(ctx context.Context, resourceKey, expectedLeaseID string, newRecord *store.LeaseRecord) (bool, error) {
	return f.s.CompareAndSwapLease(ctx, resourceKey, expectedLeaseID, newRecord)
}

func (f leaseFacet) Delete(ctx context.Context, resourceKey string, leaseID shared.ID) error {
	return f.s.DeleteLease(ctx, resourceKey, leaseID)
}
