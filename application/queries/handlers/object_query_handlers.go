// Package handlers implements the query-bus handlers for the engine's
// read-side operations.
package handlers

import (
	"context"

	"amp/application/queries"
	qbus "amp/application/queries/bus"
	"amp/internal/domain/shared"
	"amp/internal/store"
)

type GetObjectHandler struct{ objects store.ObjectStore }

func NewGetObjectHandler(objects store.ObjectStore) *GetObjectHandler { return &GetObjectHandler{objects} }

func (h *GetObjectHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query := q.(*queries.GetObjectQuery)
	id, err := shared.ParseID(query.ID)
	if err != nil {
		return nil, err
	}
	return h.objects.Get(ctx, id)
}

type ListObjectsHandler struct{ objects store.ObjectStore }

func NewListObjectsHandler(objects store.ObjectStore) *ListObjectsHandler { return &ListObjectsHandler{objects} }

func (h *ListObjectsHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query := q.(*queries.ListObjectsQuery)
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	return h.objects.List(ctx, query.Filter(), limit, query.Offset)
}

type ListRelationshipsHandler struct{ relationships store.RelationshipStore }

func NewListRelationshipsHandler(r store.RelationshipStore) *ListRelationshipsHandler {
	return &ListRelationshipsHandler{r}
}

func (h *ListRelationshipsHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query := q.(*queries.ListRelationshipsQuery)

	var sourceID, targetID *shared.ID
	if query.SourceID != "" {
		if id, err := shared.ParseID(query.SourceID); err == nil {
			sourceID = &id
		}
	}
	if query.TargetID != "" {
		if id, err := shared.ParseID(query.TargetID); err == nil {
			targetID = &id
		}
	}
	return h.relationships.List(ctx, sourceID, targetID, relTypeOrNil(query.Type))
}
