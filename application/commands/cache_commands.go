package commands

import (
	apperrors "amp/pkg/errors"
	"amp/pkg/utils"
)

// WriteCacheItemCommand appends an item to a scope's open cache block,
// subject to semantic dedup (§4.9).
type WriteCacheItemCommand struct {
	ScopeID    string  `json:"scope_id" validate:"required"`
	Kind       string  `json:"kind" validate:"required,oneof=fact decision snippet warning"`
	Content    string  `json:"content" validate:"required"`
	Importance float64 `json:"importance" validate:"gte=0,lte=1"`
	FileRef    string  `json:"file_ref"`
}

func (c *WriteCacheItemCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return apperrors.NewValidation(err.Error())
	}
	return nil
}

// CompactCacheCommand force-closes the open block and starts a new one.
type CompactCacheCommand struct {
	ScopeID string `json:"scope_id"`
}

func (c *CompactCacheCommand) Validate() error {
	if c.ScopeID == "" {
		return apperrors.NewValidation("scope_id is required")
	}
	return nil
}

// GCCacheCommand purges expired items/blocks for a scope.
type GCCacheCommand struct {
	ScopeID string `json:"scope_id"`
}

func (c *GCCacheCommand) Validate() error {
	if c.ScopeID == "" {
		return apperrors.NewValidation("scope_id is required")
	}
	return nil
}
