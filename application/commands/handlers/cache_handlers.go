package handlers

import (
	"context"

	"amp/application/commands"
	"amp/application/commands/bus"
	"amp/internal/cache"
)

type WriteCacheItemHandler struct{ c *cache.Cache }

func NewWriteCacheItemHandler(c *cache.Cache) *WriteCacheItemHandler { return &WriteCacheItemHandler{c} }

func (h *WriteCacheItemHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.WriteCacheItemCommand)
	kind, err := cache.ParseKind(c.Kind)
	if err != nil {
		return nil, err
	}
	return h.c.Write(ctx, c.ScopeID, kind, c.Content, c.Importance, c.FileRef)
}

type CompactCacheHandler struct{ c *cache.Cache }

func NewCompactCacheHandler(c *cache.Cache) *CompactCacheHandler { return &CompactCacheHandler{c} }

func (h *CompactCacheHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.CompactCacheCommand)
	return nil, h.c.Compact(ctx, c.ScopeID)
}

type GCCacheHandler struct{ c *cache.Cache }

func NewGCCacheHandler(c *cache.Cache) *GCCacheHandler { return &GCCacheHandler{c} }

func (h *GCCacheHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c := cmd.(*commands.GCCacheCommand)
	return h.c.GC(ctx, c.ScopeID), nil
}
