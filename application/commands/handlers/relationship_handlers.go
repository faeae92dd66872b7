package handlers

import (
	"context"
	"time"

	"amp/application/commands"
	"amp/application/commands/bus"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/store"
)

// CreateRelationshipHandler handles CreateRelationshipCommand.
type CreateRelationshipHandler struct {
	relationships store.RelationshipStore
}

func NewCreateRelationshipHandler(relationships store.RelationshipStore) *CreateRelationshipHandler {
	return &CreateRelationshipHandler{relationships: relationships}
}

func (h *CreateRelationshipHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.CreateRelationshipCommand)

	relType, err := relationship.ParseType(c.Type)
	if err != nil {
		return nil, err
	}
	sourceID, err := shared.ParseID(c.SourceID)
	if err != nil {
		return nil, err
	}
	targetID, err := shared.ParseID(c.TargetID)
	if err != nil {
		return nil, err
	}

	r, err := relationship.New(shared.NewID(), relType, sourceID, targetID, time.Now())
	if err != nil {
		return nil, err
	}
	return h.relationships.Create(ctx, r)
}

// DeleteRelationshipHandler handles DeleteRelationshipCommand.
type DeleteRelationshipHandler struct {
	relationships store.RelationshipStore
}

func NewDeleteRelationshipHandler(relationships store.RelationshipStore) *DeleteRelationshipHandler {
	return &DeleteRelationshipHandler{relationships: relationships}
}

func (h *DeleteRelationshipHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.DeleteRelationshipCommand)
	id, err := shared.ParseID(c.ID)
	if err != nil {
		return nil, err
	}
	return nil, h.relationships.Delete(ctx, id)
}
