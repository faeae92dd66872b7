package commands

import (
	"amp/internal/domain/shared"
	apperrors "amp/pkg/errors"
	"amp/pkg/utils"
)

// CreateRelationshipCommand creates (or idempotently re-returns) an edge.
type CreateRelationshipCommand struct {
	Type     string `json:"type" validate:"required"`
	SourceID string `json:"source_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

func (c *CreateRelationshipCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return apperrors.NewValidation(err.Error())
	}
	return nil
}

// DeleteRelationshipCommand removes a single relationship by id.
type DeleteRelationshipCommand struct {
	ID string
}

func (c *DeleteRelationshipCommand) Validate() error {
	if c.ID == "" {
		return shared.ErrEmptyID
	}
	return nil
}
