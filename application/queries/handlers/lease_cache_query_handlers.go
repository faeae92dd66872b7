package handlers

import (
	"context"

	"amp/application/queries"
	qbus "amp/application/queries/bus"
	"amp/internal/cache"
	"amp/internal/lease"
)

type LeaseStatusHandler struct{ manager *lease.Manager }

func NewLeaseStatusHandler(m *lease.Manager) *LeaseStatusHandler { return &LeaseStatusHandler{m} }

func (h *LeaseStatusHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query := q.(*queries.LeaseStatusQuery)
	return h.manager.Status(ctx, query.ResourceKey)
}

type ReadCacheHandler struct{ c *cache.Cache }

func NewReadCacheHandler(c *cache.Cache) *ReadCacheHandler { return &ReadCacheHandler{c} }

func (h *ReadCacheHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query := q.(*queries.ReadCacheQuery)
	return h.c.Read(ctx, query.ScopeID, query.Query, query.TokenBudget, query.ListAll, query.IncludeContent)
}
