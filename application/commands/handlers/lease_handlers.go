package handlers

import (
	"context"
	"time"

	"amp/application/commands"
	"amp/application/commands/bus"
	"amp/internal/domain/shared"
	"amp/internal/lease"
	apperrors "amp/pkg/errors"
)

type AcquireLeaseHandler struct{ manager *lease.Manager }

func NewAcquireLeaseHandler(m *lease.Manager) *AcquireLeaseHandler { return &AcquireLeaseHandler{m} }

func (h *AcquireLeaseHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.AcquireLeaseCommand)
	ttl := time.Duration(c.TTLMillis) * time.Millisecond
	return h.manager.Acquire(ctx, c.ResourceKey, c.Holder, ttl)
}

type RenewLeaseHandler struct{ manager *lease.Manager }

func NewRenewLeaseHandler(m *lease.Manager) *RenewLeaseHandler { return &RenewLeaseHandler{m} }

func (h *RenewLeaseHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.RenewLeaseCommand)
	leaseID, err := shared.ParseID(c.LeaseID)
	if err != nil {
		return nil, apperrors.NewLeaseExpired(c.LeaseID)
	}
	ttl := time.Duration(c.TTLMillis) * time.Millisecond
	return h.manager.Renew(ctx, c.ResourceKey, leaseID, ttl)
}

type ReleaseLeaseHandler struct{ manager *lease.Manager }

func NewReleaseLeaseHandler(m *lease.Manager) *ReleaseLeaseHandler { return &ReleaseLeaseHandler{m} }

func (h *ReleaseLeaseHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.ReleaseLeaseCommand)
	leaseID, err := shared.ParseID(c.LeaseID)
	if err != nil {
		return nil, nil // malformed/unknown lease id releases as a no-op, per §8 idempotence
	}
	return nil, h.manager.Release(ctx, c.ResourceKey, leaseID)
}
