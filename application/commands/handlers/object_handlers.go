// Package handlers implements the command-bus handlers that translate each
// CQRS command into calls against the domain/store layer.
package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"amp/application/commands"
	"amp/application/commands/bus"
	"amp/internal/domain/object"
	"amp/internal/domain/shared"
	"amp/internal/embedding"
	"amp/internal/store"
)

// CreateObjectHandler handles CreateObjectCommand and CreateObjectBatchCommand.
type CreateObjectHandler struct {
	objects  store.ObjectStore
	embedder embedding.Client
	logger   *zap.Logger
}

func NewCreateObjectHandler(objects store.ObjectStore, embedder embedding.Client, logger *zap.Logger) *CreateObjectHandler {
	return &CreateObjectHandler{objects: objects, embedder: embedder, logger: logger}
}

func buildObject(cmd *commands.CreateObjectCommand, now time.Time) (*object.Object, error) {
	id := shared.NewID()
	if cmd.ID != "" {
		var err error
		id, err = shared.ParseID(cmd.ID)
		if err != nil {
			return nil, err
		}
	}
	objType, err := object.ParseType(cmd.Type)
	if err != nil {
		return nil, err
	}
	ns, err := shared.NewNamespace(cmd.TenantID, cmd.ProjectID)
	if err != nil {
		return nil, err
	}
	obj, err := object.New(id, objType, ns, cmd.Provenance, cmd.Payload, now)
	if err != nil {
		return nil, err
	}
	obj.SetLinks(cmd.Links)
	return obj, nil
}

// Handle creates a single object, best-effort requesting its embedding
// in the background (never blocking the write on the embedder).
func (h *CreateObjectHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.CreateObjectCommand)
	obj, err := buildObject(c, time.Now())
	if err != nil {
		return nil, err
	}
	if err := h.objects.Create(ctx, obj); err != nil {
		return nil, err
	}
	h.requestEmbedding(obj.ID(), obj)
	return obj, nil
}

// requestEmbedding dispatches a best-effort embedding request on its own
// goroutine, per §4.3's "the object is stored with embedding=null, a
// subsequent update re-tries" contract. The resulting vector is written
// back through the store rather than onto obj directly: obj may be the
// very pointer a concurrent reader holds, and object mutations on a
// single id are serialized by the store, not by the caller.
func (h *CreateObjectHandler) requestEmbedding(id shared.ID, obj *object.Object) {
	text := embeddableText(obj)
	if text == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		vec, ok := h.embedder.Embed(ctx, text)
		if !ok {
			return
		}
		if err := h.objects.SetEmbedding(ctx, id, vec); err != nil {
			h.logger.Warn("embedding write-back failed", zap.String("object_id", id.String()), zap.Error(err))
		}
	}()
}

func embeddableText(obj *object.Object) string {
	out := ""
	for _, field := range obj.Type().TextFields() {
		if v, ok := obj.Payload()[field]; ok {
			if s, ok := v.(string); ok {
				out += s + " "
			}
		}
	}
	return out
}

// CreateObjectBatchHandler handles the best-effort batch variant.
type CreateObjectBatchHandler struct {
	objects  store.ObjectStore
	embedder embedding.Client
	logger   *zap.Logger
}

func NewCreateObjectBatchHandler(objects store.ObjectStore, embedder embedding.Client, logger *zap.Logger) *CreateObjectBatchHandler {
	return &CreateObjectBatchHandler{objects: objects, embedder: embedder, logger: logger}
}

func (h *CreateObjectBatchHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.CreateObjectBatchCommand)
	now := time.Now()

	objs := make([]*object.Object, 0, len(c.Items))
	results := make([]store.BatchResult, 0, len(c.Items))
	itemIndex := make(map[string]int)

	for i, item := range c.Items {
		obj, err := buildObject(item, now)
		if err != nil {
			results = append(results, store.BatchResult{ID: item.ID, Status: "failed", Error: err.Error()})
			continue
		}
		itemIndex[obj.ID().String()] = i
		objs = append(objs, obj)
	}

	storeResults := h.objects.CreateBatch(ctx, objs)
	results = append(results, storeResults...)

	for _, obj := range objs {
		h.embedNewObject(obj.ID(), obj)
	}

	return results, nil
}

// embedNewObject mirrors CreateObjectHandler.requestEmbedding: the vector is
// written back through the store so it goes through the same lock that
// guards every other reader/writer of this id.
func (h *CreateObjectBatchHandler) embedNewObject(id shared.ID, obj *object.Object) {
	text := embeddableText(obj)
	if text == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if vec, ok := h.embedder.Embed(ctx, text); ok {
			if err := h.objects.SetEmbedding(ctx, id, vec); err != nil {
				h.logger.Warn("embedding write-back failed", zap.String("object_id", id.String()), zap.Error(err))
			}
		}
	}()
}

// UpdateObjectHandler handles UpdateObjectCommand.
type UpdateObjectHandler struct {
	objects  store.ObjectStore
	embedder embedding.Client
	logger   *zap.Logger
}

func NewUpdateObjectHandler(objects store.ObjectStore, embedder embedding.Client, logger *zap.Logger) *UpdateObjectHandler {
	return &UpdateObjectHandler{objects: objects, embedder: embedder, logger: logger}
}

func (h *UpdateObjectHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.UpdateObjectCommand)
	id, err := shared.ParseID(c.ID)
	if err != nil {
		return nil, err
	}
	obj, textChanged, err := h.objects.Update(ctx, id, c.Patch, time.Now())
	if err != nil {
		return nil, err
	}
	if textChanged {
		go func(id shared.ID, text string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if vec, ok := h.embedder.Embed(ctx, text); ok {
				if err := h.objects.SetEmbedding(ctx, id, vec); err != nil {
					h.logger.Warn("embedding write-back failed", zap.String("object_id", id.String()), zap.Error(err))
				}
			}
		}(id, embeddableText(obj))
	}
	return obj, nil
}

// DeleteObjectHandler handles DeleteObjectCommand, cascading to incident
// relationships per §3's invariant.
type DeleteObjectHandler struct {
	objects       store.ObjectStore
	relationships store.RelationshipStore
}

func NewDeleteObjectHandler(objects store.ObjectStore, relationships store.RelationshipStore) *DeleteObjectHandler {
	return &DeleteObjectHandler{objects: objects, relationships: relationships}
}

func (h *DeleteObjectHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.DeleteObjectCommand)
	id, err := shared.ParseID(c.ID)
	if err != nil {
		return nil, err
	}
	if err := h.objects.Delete(ctx, id); err != nil {
		return nil, err
	}
	if err := h.relationships.DeleteIncidentTo(ctx, id); err != nil {
		return nil, err
	}
	return nil, nil
}
