package commands

import (
	"amp/internal/domain/object"
	"amp/internal/domain/shared"
	apperrors "amp/pkg/errors"
	"amp/pkg/utils"
)

// CreateObjectCommand creates a single memory object (§4.1 create).
type CreateObjectCommand struct {
	ID         string                 `json:"id" validate:"omitempty,max=128"`
	Type       string                 `json:"type" validate:"required"`
	TenantID   string                 `json:"tenant_id" validate:"required"`
	ProjectID  string                 `json:"project_id" validate:"required"`
	Provenance object.Provenance      `json:"provenance"`
	Links      []object.Link          `json:"links"`
	Payload    map[string]interface{} `json:"payload"`
}

func (c *CreateObjectCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return apperrors.NewValidation(err.Error())
	}
	if _, err := object.ParseType(c.Type); err != nil {
		return err
	}
	return c.Provenance.Validate()
}

// CreateObjectBatchCommand is the best-effort batch create of §4.1.
type CreateObjectBatchCommand struct {
	Items []*CreateObjectCommand
}

func (c *CreateObjectBatchCommand) Validate() error {
	if len(c.Items) == 0 {
		return apperrors.NewValidation("batch create requires at least one item")
	}
	return nil
}

// UpdateObjectCommand applies a shallow payload merge to an existing object.
type UpdateObjectCommand struct {
	ID    string
	Patch map[string]interface{}
}

func (c *UpdateObjectCommand) Validate() error {
	if c.ID == "" {
		return shared.ErrEmptyID
	}
	if len(c.Patch) == 0 {
		return apperrors.NewValidation("update requires at least one field")
	}
	return nil
}

// DeleteObjectCommand removes an object and cascades to incident relationships.
type DeleteObjectCommand struct {
	ID string
}

func (c *DeleteObjectCommand) Validate() error {
	if c.ID == "" {
		return shared.ErrEmptyID
	}
	return nil
}
