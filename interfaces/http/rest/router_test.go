package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"amp/application/commands"
	commandhandlers "amp/application/commands/handlers"
	"amp/application/commands/bus"
	"amp/application/queries"
	queryhandlers "amp/application/queries/handlers"
	querybus "amp/application/queries/bus"
	"amp/internal/cache"
	"amp/internal/embedding"
	"amp/internal/lease"
	"amp/internal/store/memstore"
)

// testRouter assembles the command/query registrations infrastructure/di
// wires in production, except the hybrid query, against an in-memory store,
// so the HTTP surface can be exercised end-to-end without a live backend.
func testRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	s := memstore.New()
	objects := memstore.NewObjectStore(s)
	relationships := memstore.NewRelationshipStore(s)
	leases := memstore.NewLeaseStore(s)
	embedder := embedding.NewClient(embedding.Config{Provider: embedding.ProviderNone}, logger)
	leaseMgr := lease.NewManager(leases)
	memCache := cache.New(embedder)

	cmdBus := bus.NewCommandBus(logger)
	cmdBus.Register(&commands.CreateObjectCommand{}, commandhandlers.NewCreateObjectHandler(objects, embedder, logger))
	cmdBus.Register(&commands.CreateObjectBatchCommand{}, commandhandlers.NewCreateObjectBatchHandler(objects, embedder, logger))
	cmdBus.Register(&commands.UpdateObjectCommand{}, commandhandlers.NewUpdateObjectHandler(objects, embedder, logger))
	cmdBus.Register(&commands.DeleteObjectCommand{}, commandhandlers.NewDeleteObjectHandler(objects, relationships))
	cmdBus.Register(&commands.CreateRelationshipCommand{}, commandhandlers.NewCreateRelationshipHandler(relationships))
	cmdBus.Register(&commands.DeleteRelationshipCommand{}, commandhandlers.NewDeleteRelationshipHandler(relationships))
	cmdBus.Register(&commands.AcquireLeaseCommand{}, commandhandlers.NewAcquireLeaseHandler(leaseMgr))
	cmdBus.Register(&commands.RenewLeaseCommand{}, commandhandlers.NewRenewLeaseHandler(leaseMgr))
	cmdBus.Register(&commands.ReleaseLeaseCommand{}, commandhandlers.NewReleaseLeaseHandler(leaseMgr))
	cmdBus.Register(&commands.WriteCacheItemCommand{}, commandhandlers.NewWriteCacheItemHandler(memCache))
	cmdBus.Register(&commands.CompactCacheCommand{}, commandhandlers.NewCompactCacheHandler(memCache))
	cmdBus.Register(&commands.GCCacheCommand{}, commandhandlers.NewGCCacheHandler(memCache))

	qBus := querybus.NewQueryBus()
	mustRegister := func(sample querybus.Query, handler querybus.QueryHandler) {
		if err := qBus.Register(sample, handler); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	mustRegister(&queries.GetObjectQuery{}, queryhandlers.NewGetObjectHandler(objects))
	mustRegister(&queries.ListObjectsQuery{}, queryhandlers.NewListObjectsHandler(objects))
	mustRegister(&queries.ListRelationshipsQuery{}, queryhandlers.NewListRelationshipsHandler(relationships))
	mustRegister(&queries.LeaseStatusQuery{}, queryhandlers.NewLeaseStatusHandler(leaseMgr))
	mustRegister(&queries.ReadCacheQuery{}, queryhandlers.NewReadCacheHandler(memCache))

	rt := NewRouter(cmdBus, qBus, logger, nil, true)
	return rt.Setup()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	h := testRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}
}

func TestCreateObject_ReturnsCreatedWithBody(t *testing.T) {
	h := testRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/objects/", map[string]interface{}{
		"type":       "note",
		"tenant_id":  "tenant-1",
		"project_id": "project-1",
		"provenance": map[string]string{"agent": "agent-1", "summary": "created in a test"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/objects status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected the created object to have a non-empty id")
	}

	getRec := doJSON(t, h, http.MethodGet, "/v1/objects/"+created.ID, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("GET /v1/objects/%s status = %d", created.ID, getRec.Code)
	}
}

func TestCreateObject_MissingRequiredFieldReturnsValidationEnvelope(t *testing.T) {
	h := testRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/objects/", map[string]interface{}{
		"tenant_id": "tenant-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Kind != "validation" {
		t.Errorf("error.kind = %q, want %q", envelope.Error.Kind, "validation")
	}
}

func TestGetObject_MissingReturnsNotFoundEnvelope(t *testing.T) {
	h := testRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/objects/00000000-0000-0000-0000-000000000000", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRoute_RendersNotFoundThroughErrorHandler(t *testing.T) {
	h := testRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/nonexistent", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var envelope struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Kind == "" {
		t.Error("expected a non-empty error kind in the 404 envelope")
	}
}

func TestAcquireLease_ThenStatusReportsHeld(t *testing.T) {
	h := testRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/leases:acquire", map[string]interface{}{
		"resource_key": "repo:main",
		"holder":       "agent-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/leases:acquire status = %d, body %s", rec.Code, rec.Body.String())
	}

	statusRec := doJSON(t, h, http.MethodGet, "/v1/leases/repo:main", nil)
	if statusRec.Code != http.StatusOK {
		t.Fatalf("GET /v1/leases/repo:main status = %d, body %s", statusRec.Code, statusRec.Body.String())
	}
	var status struct {
		Held bool `json:"held"`
	}
	if err := json.Unmarshal(statusRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Held {
		t.Error("lease status should report held=true after a successful acquire")
	}
}

func TestWriteCacheItem_ThenReadListAll(t *testing.T) {
	h := testRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/cache/write", map[string]interface{}{
		"scope_id":   "scope-1",
		"kind":       "fact",
		"content":    "the deploy pipeline uses blue-green",
		"importance": 0.7,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/cache/write status = %d, body %s", rec.Code, rec.Body.String())
	}

	readRec := doJSON(t, h, http.MethodPost, "/v1/cache/read", map[string]interface{}{
		"scope_id": "scope-1",
		"list_all": true,
	})
	if readRec.Code != http.StatusOK {
		t.Fatalf("POST /v1/cache/read status = %d, body %s", readRec.Code, readRec.Body.String())
	}
}
