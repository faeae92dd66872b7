package commands

import (
	apperrors "amp/pkg/errors"
	"amp/pkg/utils"
)

// AcquireLeaseCommand claims a resource key for a holder (§4.8).
type AcquireLeaseCommand struct {
	ResourceKey string `json:"resource_key" validate:"required"`
	Holder      string `json:"holder" validate:"required"`
	TTLMillis   int64  `json:"ttl_ms" validate:"omitempty,min=1,max=3600000"`
}

func (c *AcquireLeaseCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return apperrors.NewValidation(err.Error())
	}
	return nil
}

// RenewLeaseCommand extends an unexpired lease's expiry.
type RenewLeaseCommand struct {
	ResourceKey string `json:"resource_key"`
	LeaseID     string `json:"lease_id"`
	TTLMillis   int64  `json:"ttl_ms"`
}

func (c *RenewLeaseCommand) Validate() error {
	if c.ResourceKey == "" || c.LeaseID == "" {
		return apperrors.NewValidation("resource_key and lease_id are required")
	}
	return nil
}

// ReleaseLeaseCommand releases a held lease; a mismatch is a no-op.
type ReleaseLeaseCommand struct {
	ResourceKey string `json:"resource_key"`
	LeaseID     string `json:"lease_id"`
}

func (c *ReleaseLeaseCommand) Validate() error {
	if c.ResourceKey == "" || c.LeaseID == "" {
		return apperrors.NewValidation("resource_key and lease_id are required")
	}
	return nil
}
