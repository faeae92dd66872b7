// Package memstore is the default in-process backing store
// (DATABASE_URL=memory), grounded on the teacher's sync.RWMutex-guarded map
// repository pattern.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"amp/internal/domain/object"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/store"
	apperrors "amp/pkg/errors"
)

// Store implements store.ObjectStore, store.RelationshipStore and
// store.LeaseStore entirely in memory, guarded by a single RWMutex shared by
// all three entity families (cheap to reason about; the engine's 5s operation ceiling
// never actually blocks on this lock in practice).
type Store struct {
	mu            sync.RWMutex
	objects       map[string]*object.Object
	relationships map[string]*relationship.Relationship
	relByKey      map[relationship.Key]string
	leases        map[string]*store.LeaseRecord
}

func New() *Store {
	return &Store{
		objects:       make(map[string]*object.Object),
		relationships: make(map[string]*relationship.Relationship),
		relByKey:      make(map[relationship.Key]string),
		leases:        make(map[string]*store.LeaseRecord),
	}
}

// ---- ObjectStore ----

func (s *Store) Create(ctx context.Context, obj *object.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[obj.ID().String()]; exists {
		return apperrors.NewConflict("object " + obj.ID().String() + " already exists")
	}
	s.objects[obj.ID().String()] = obj
	return nil
}

func (s *Store) CreateBatch(ctx context.Context, objs []*object.Object) []store.BatchResult {
	results := make([]store.BatchResult, 0, len(objs))
	for _, obj := range objs {
		if err := s.Create(ctx, obj); err != nil {
			results = append(results, store.BatchResult{ID: obj.ID().String(), Status: "failed", Error: err.Error()})
			continue
		}
		results = append(results, store.BatchResult{ID: obj.ID().String(), Status: "created"})
	}
	return results
}

func (s *Store) Get(ctx context.Context, id shared.ID) (*object.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id.String()]
	if !ok {
		return nil, apperrors.NewNotFound("object " + id.String())
	}
	return obj, nil
}

func (s *Store) Update(ctx context.Context, id shared.ID, patch map[string]interface{}, now time.Time) (*object.Object, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id.String()]
	if !ok {
		return nil, false, apperrors.NewNotFound("object " + id.String())
	}
	textChanged, err := obj.Patch(patch, now)
	if err != nil {
		return nil, false, err
	}
	return obj, textChanged, nil
}

func (s *Store) Delete(ctx context.Context, id shared.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id.String()]; !ok {
		return apperrors.NewNotFound("object " + id.String())
	}
	delete(s.objects, id.String())
	return nil
}

func (s *Store) SetEmbedding(ctx context.Context, id shared.ID, vec []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id.String()]
	if !ok {
		return apperrors.NewNotFound("object " + id.String())
	}
	obj.SetEmbedding(vec)
	return nil
}

func (s *Store) List(ctx context.Context, f store.Filter, limit, offset int) ([]*object.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*object.Object, 0)
	for _, obj := range s.objects {
		if f.Matches(obj) {
			matched = append(matched, obj)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt().After(matched[j].UpdatedAt()) })

	if offset >= len(matched) {
		return []*object.Object{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// ---- RelationshipStore ----

func (s *Store) CreateRelationship(ctx context.Context, r *relationship.Relationship) (*relationship.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[r.SourceID.String()]; !ok {
		return nil, apperrors.NewValidation("relationship source does not exist: " + r.SourceID.String())
	}
	if _, ok := s.objects[r.TargetID.String()]; !ok {
		return nil, apperrors.NewValidation("relationship target does not exist: " + r.TargetID.String())
	}
	if s.objects[r.SourceID.String()].Namespace().TenantID != s.objects[r.TargetID.String()].Namespace().TenantID {
		return nil, apperrors.NewValidation("relationship endpoints must share a tenant")
	}

	key := r.Key()
	if existingID, ok := s.relByKey[key]; ok {
		return s.relationships[existingID], nil
	}

	s.relationships[r.ID.String()] = r
	s.relByKey[key] = r.ID.String()
	return r, nil
}

func (s *Store) ListRelationships(ctx context.Context, sourceID, targetID *shared.ID, relType *relationship.Type) ([]*relationship.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*relationship.Relationship, 0)
	for _, r := range s.relationships {
		if sourceID != nil && !r.SourceID.Equals(*sourceID) {
			continue
		}
		if targetID != nil && !r.TargetID.Equals(*targetID) {
			continue
		}
		if relType != nil && r.Type != *relType {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteRelationship(ctx context.Context, id shared.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.relationships[id.String()]
	if !ok {
		return apperrors.NewNotFound("relationship " + id.String())
	}
	delete(s.relationships, id.String())
	delete(s.relByKey, r.Key())
	return nil
}

func (s *Store) DeleteRelationshipsWhere(ctx context.Context, source, target *shared.ID, relType *relationship.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.relationships {
		if source != nil && !r.SourceID.Equals(*source) {
			continue
		}
		if target != nil && !r.TargetID.Equals(*target) {
			continue
		}
		if relType != nil && r.Type != *relType {
			continue
		}
		delete(s.relationships, id)
		delete(s.relByKey, r.Key())
	}
	return nil
}

func (s *Store) DeleteIncidentTo(ctx context.Context, objID shared.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.relationships {
		if r.SourceID.Equals(objID) || r.TargetID.Equals(objID) {
			delete(s.relationships, id)
			delete(s.relByKey, r.Key())
		}
	}
	return nil
}

// Snapshot is the serializable contents of a Store, used by filestore to
// persist and restore state across restarts.
type Snapshot struct {
	Objects       []*object.Object             `json:"objects"`
	Relationships []*relationship.Relationship `json:"relationships"`
	Leases        []*store.LeaseRecord         `json:"leases"`
}

// Snapshot captures the current contents for serialization.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Objects:       make([]*object.Object, 0, len(s.objects)),
		Relationships: make([]*relationship.Relationship, 0, len(s.relationships)),
		Leases:        make([]*store.LeaseRecord, 0, len(s.leases)),
	}
	for _, obj := range s.objects {
		snap.Objects = append(snap.Objects, obj)
	}
	for _, r := range s.relationships {
		snap.Relationships = append(snap.Relationships, r)
	}
	for key, rec := range s.leases {
		rec.ResourceKey = key
		snap.Leases = append(snap.Leases, rec)
	}
	return snap
}

// Restore replaces the Store's contents with a previously captured Snapshot.
func (s *Store) Restore(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = make(map[string]*object.Object, len(snap.Objects))
	for _, obj := range snap.Objects {
		s.objects[obj.ID().String()] = obj
	}

	s.relationships = make(map[string]*relationship.Relationship, len(snap.Relationships))
	s.relByKey = make(map[relationship.Key]string, len(snap.Relationships))
	for _, r := range snap.Relationships {
		s.relationships[r.ID.String()] = r
		s.relByKey[r.Key()] = r.ID.String()
	}

	s.leases = make(map[string]*store.LeaseRecord, len(snap.Leases))
	for _, rec := range snap.Leases {
		s.leases[rec.ResourceKey] = rec
	}
}

// ---- LeaseStore ----

func (s *Store) GetLease(ctx context.Context, resourceKey string) (*store.LeaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.leases[resourceKey]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) CompareAndSwapLease(ctx context.Context, resourceKey, expectedLeaseID string, newRecord *store.LeaseRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.leases[resourceKey]
	currentID := ""
	if exists {
		currentID = current.LeaseID.String()
	}
	if currentID != expectedLeaseID {
		return false, nil
	}
	s.leases[resourceKey] = newRecord
	return true, nil
}

func (s *Store) DeleteLease(ctx context.Context, resourceKey string, leaseID shared.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.leases[resourceKey]
	if !ok || !rec.LeaseID.Equals(leaseID) {
		return nil
	}
	delete(s.leases, resourceKey)
	return nil
}
