// Package wsstore backs DATABASE_URL=ws://<host>:<port>: a thin JSON-RPC
// client over a persistent gorilla/websocket connection to an external
// store process, grounded on the teacher's cmd/ws-connect Lambda's
// connection-management style (one long-lived socket, correlated
// request/response frames) adapted to a synchronous client instead of an
// API Gateway connection table.
package wsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"amp/internal/domain/object"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/store"
	apperrors "amp/pkg/errors"
)

const callTimeout = 5 * time.Second

type rpcRequest struct {
	ID      string          `json:"id"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type rpcResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Store implements store.ObjectStore, store.RelationshipStore and
// store.LeaseStore against a remote process reachable over a websocket.
type Store struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan rpcResponse

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens the websocket connection and starts the response-dispatch loop.
func Dial(ctx context.Context, url string) (*Store, error) {
	dialer := websocket.Dialer{HandshakeTimeout: callTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsstore: dial %s: %w", url, err)
	}

	s := &Store{
		conn:    conn,
		pending: make(map[string]chan rpcResponse),
		closed:  make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Store) readLoop() {
	for {
		var resp rpcResponse
		if err := s.conn.ReadJSON(&resp); err != nil {
			s.pendingMu.Lock()
			for id, ch := range s.pending {
				close(ch)
				delete(s.pending, id)
			}
			s.pendingMu.Unlock()
			close(s.closed)
			return
		}
		s.pendingMu.Lock()
		ch, ok := s.pending[resp.ID]
		if ok {
			delete(s.pending, resp.ID)
		}
		s.pendingMu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (s *Store) call(ctx context.Context, op string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req := rpcRequest{ID: uuid.NewString(), Op: op, Payload: body}

	ch := make(chan rpcResponse, 1)
	s.pendingMu.Lock()
	s.pending[req.ID] = ch
	s.pendingMu.Unlock()

	s.writeMu.Lock()
	err = s.conn.WriteJSON(req)
	s.writeMu.Unlock()
	if err != nil {
		s.pendingMu.Lock()
		delete(s.pending, req.ID)
		s.pendingMu.Unlock()
		return apperrors.NewUpstreamUnavailable("wsstore").WithCause(err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return apperrors.NewUpstreamUnavailable("wsstore")
		}
		if resp.Error != "" {
			return decodeRemoteError(resp.Error)
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(callTimeout):
		return apperrors.NewTimeout(op)
	}
}

// decodeRemoteError maps a remote "KIND: message" error string back onto the
// engine's AppError taxonomy so HTTP translation stays consistent regardless
// of backing store.
func decodeRemoteError(msg string) error {
	kinds := []apperrors.Kind{
		apperrors.KindValidation, apperrors.KindNotFound, apperrors.KindConflict,
		apperrors.KindLeaseConflict, apperrors.KindLeaseExpired, apperrors.KindNoPath,
		apperrors.KindTimeout, apperrors.KindUpstreamUnavailable, apperrors.KindInternal,
	}
	for _, kind := range kinds {
		prefix := string(kind) + ": "
		if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return apperrors.New(kind, msg[len(prefix):])
		}
	}
	return apperrors.NewInternal(msg)
}

// Close terminates the websocket connection.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}

// ---- ObjectStore ----

func (s *Store) Create(ctx context.Context, obj *object.Object) error {
	return s.call(ctx, "object.create", obj, nil)
}

func (s *Store) CreateBatch(ctx context.Context, objs []*object.Object) []store.BatchResult {
	var results []store.BatchResult
	if err := s.call(ctx, "object.create_batch", objs, &results); err != nil {
		out := make([]store.BatchResult, 0, len(objs))
		for _, obj := range objs {
			out = append(out, store.BatchResult{ID: obj.ID().String(), Status: "failed", Error: err.Error()})
		}
		return out
	}
	return results
}

func (s *Store) Get(ctx context.Context, id shared.ID) (*object.Object, error) {
	var obj object.Object
	if err := s.call(ctx, "object.get", map[string]string{"id": id.String()}, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

type updateRequest struct {
	ID    string                 `json:"id"`
	Patch map[string]interface{} `json:"patch"`
	Now   time.Time              `json:"now"`
}

type updateResponse struct {
	Object      object.Object `json:"object"`
	TextChanged bool          `json:"text_changed"`
}

func (s *Store) Update(ctx context.Context, id shared.ID, patch map[string]interface{}, now time.Time) (*object.Object, bool, error) {
	var resp updateResponse
	if err := s.call(ctx, "object.update", updateRequest{ID: id.String(), Patch: patch, Now: now}, &resp); err != nil {
		return nil, false, err
	}
	return &resp.Object, resp.TextChanged, nil
}

func (s *Store) Delete(ctx context.Context, id shared.ID) error {
	return s.call(ctx, "object.delete", map[string]string{"id": id.String()}, nil)
}

type setEmbeddingRequest struct {
	ID        string    `json:"id"`
	Embedding []float64 `json:"embedding"`
}

func (s *Store) SetEmbedding(ctx context.Context, id shared.ID, vec []float64) error {
	return s.call(ctx, "object.set_embedding", setEmbeddingRequest{ID: id.String(), Embedding: vec}, nil)
}

type listRequest struct {
	Filter store.Filter `json:"filter"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (s *Store) List(ctx context.Context, f store.Filter, limit, offset int) ([]*object.Object, error) {
	var objs []*object.Object
	if err := s.call(ctx, "object.list", listRequest{Filter: f, Limit: limit, Offset: offset}, &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// ---- RelationshipStore ----

func (s *Store) CreateRelationship(ctx context.Context, r *relationship.Relationship) (*relationship.Relationship, error) {
	var out relationship.Relationship
	if err := s.call(ctx, "relationship.create", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type listRelationshipsRequest struct {
	SourceID *string `json:"source_id,omitempty"`
	TargetID *string `json:"target_id,omitempty"`
	Type     *string `json:"type,omitempty"`
}

func (s *Store) ListRelationships(ctx context.Context, sourceID, targetID *shared.ID, relType *relationship.Type) ([]*relationship.Relationship, error) {
	req := listRelationshipsRequest{}
	if sourceID != nil {
		v := sourceID.String()
		req.SourceID = &v
	}
	if targetID != nil {
		v := targetID.String()
		req.TargetID = &v
	}
	if relType != nil {
		v := string(*relType)
		req.Type = &v
	}
	var out []*relationship.Relationship
	if err := s.call(ctx, "relationship.list", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteRelationship(ctx context.Context, id shared.ID) error {
	return s.call(ctx, "relationship.delete", map[string]string{"id": id.String()}, nil)
}

func (s *Store) DeleteRelationshipsWhere(ctx context.Context, source, target *shared.ID, relType *relationship.Type) error {
	req := listRelationshipsRequest{}
	if source != nil {
		v := source.String()
		req.SourceID = &v
	}
	if target != nil {
		v := target.String()
		req.TargetID = &v
	}
	if relType != nil {
		v := string(*relType)
		req.Type = &v
	}
	return s.call(ctx, "relationship.delete_where", req, nil)
}

func (s *Store) DeleteIncidentTo(ctx context.Context, objID shared.ID) error {
	return s.call(ctx, "relationship.delete_incident_to", map[string]string{"object_id": objID.String()}, nil)
}

// ---- LeaseStore ----

func (s *Store) GetLease(ctx context.Context, resourceKey string) (*store.LeaseRecord, error) {
	var rec *store.LeaseRecord
	if err := s.call(ctx, "lease.get", map[string]string{"resource_key": resourceKey}, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

type casRequest struct {
	ResourceKey     string            `json:"resource_key"`
	ExpectedLeaseID string            `json:"expected_lease_id"`
	NewRecord       *store.LeaseRecord `json:"new_record"`
}

func (s *Store) CompareAndSwapLease(ctx context.Context, resourceKey, expectedLeaseID string, newRecord *store.LeaseRecord) (bool, error) {
	var ok bool
	if err := s.call(ctx, "lease.compare_and_swap", casRequest{resourceKey, expectedLeaseID, newRecord}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Store) DeleteLease(ctx context.Context, resourceKey string, leaseID shared.ID) error {
	return s.call(ctx, "lease.delete", map[string]string{"resource_key": resourceKey, "lease_id": leaseID.String()}, nil)
}

// NewObjectStore, NewRelationshipStore and NewLeaseStore project Store onto
// the three backing-store ports via the same facet pattern as memstore.
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
