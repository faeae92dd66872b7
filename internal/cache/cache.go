// Package cache implements the Episodic Cache (C9): bounded, token-budgeted
// short-term memory shared across agents within a scope, with semantic
// deduplication and block lifecycle management.
package cache

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"amp/internal/embedding"
	apperrors "amp/pkg/errors"
)

const (
	MaxBlocksPerScope  = 20
	AutoCloseTokens    = 1800
	DedupThreshold     = 0.92
	ItemTTL            = 30 * time.Minute
	DefaultReadBudget  = 600
	DefaultListAllSize = 5
	FreshWindow        = 5 * time.Minute
)

type ItemKind string

const (
	KindFact     ItemKind = "fact"
	KindDecision ItemKind = "decision"
	KindSnippet  ItemKind = "snippet"
	KindWarning  ItemKind = "warning"
)

// Item is one entry within a block.
type Item struct {
	ID           string     `json:"id"`
	Kind         ItemKind   `json:"kind"`
	Content      string     `json:"content"`
	Importance   float64    `json:"importance"`
	FileRef      string     `json:"file_ref,omitempty"`
	Embedding    []float64  `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessAt time.Time  `json:"last_access_at"`
}

// Block is an append-only container of items that closes at the token budget.
type Block struct {
	ID        string     `json:"id"`
	OpenedAt  time.Time  `json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Embedding []float64  `json:"-"`
	Items     []*Item    `json:"items"`
}

func (b *Block) estimatedTokens() int {
	total := estimateTokens(b.Summary)
	for _, it := range b.Items {
		total += estimateTokens(it.Content)
	}
	return total
}

// estimateTokens approximates token count as ~4 characters per token.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	t := len(s) / 4
	if t == 0 {
		return 1
	}
	return t
}

type scopeState struct {
	mu     sync.Mutex
	blocks []*Block // ordered oldest-first; last is open unless empty
}

// Cache is the in-process backing for the episodic cache, grounded on the
// teacher's TTL-by-ticker in-memory store pattern, generalized to the
// block/item/scope model.
type Cache struct {
	mu       sync.RWMutex
	scopes   map[string]*scopeState
	embedder embedding.Client
	now      func() time.Time

	load func(scopeID string) *ScopeSnapshot
	save func(scopeID string, snap *ScopeSnapshot)
}

// Option configures optional Cache behavior.
type Option func(*Cache)

// WithPersistence installs a load/save hook pair, used by the optional
// CACHE_BACKEND=redis wiring to survive restarts: load is consulted the
// first time a scope is touched, save is invoked after every mutation.
func WithPersistence(load func(scopeID string) *ScopeSnapshot, save func(scopeID string, snap *ScopeSnapshot)) Option {
	return func(c *Cache) { c.load, c.save = load, save }
}

func New(embedder embedding.Client, opts ...Option) *Cache {
	c := &Cache{
		scopes:   make(map[string]*scopeState),
		embedder: embedder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) scope(scopeID string) *scopeState {
	c.mu.Lock()
	s, ok := c.scopes[scopeID]
	if !ok {
		s = &scopeState{}
		if c.load != nil {
			if snap := c.load(scopeID); snap != nil {
				s.blocks = snap.Blocks
			}
		}
		c.scopes[scopeID] = s
	}
	c.mu.Unlock()
	return s
}

// persist snapshots a scope and invokes the save hook, if configured.
// Caller must hold s.mu, and the save hook runs under it: the snapshot
// copies the slice of block pointers, not the blocks themselves.
func (c *Cache) persist(scopeID string, s *scopeState) {
	if c.save == nil {
		return
	}
	blocks := make([]*Block, len(s.blocks))
	copy(blocks, s.blocks)
	c.save(scopeID, &ScopeSnapshot{ScopeID: scopeID, Blocks: blocks})
}

// ScopeSnapshot is the serializable contents of one scope's blocks, used by
// the optional redis persistence backend.
type ScopeSnapshot struct {
	ScopeID string   `json:"scope_id"`
	Blocks  []*Block `json:"blocks"`
}

// openBlock returns the scope's open block, creating one if none is open.
// Caller must hold s.mu.
func (c *Cache) openBlock(s *scopeState) *Block {
	if len(s.blocks) > 0 {
		last := s.blocks[len(s.blocks)-1]
		if last.ClosedAt == nil {
			return last
		}
	}
	b := &Block{ID: uuid.NewString(), OpenedAt: c.now()}
	s.blocks = append(s.blocks, b)
	c.evictIfNeeded(s)
	return b
}

// evictIfNeeded enforces the 20-block FIFO cap. Caller must hold s.mu.
func (c *Cache) evictIfNeeded(s *scopeState) {
	for len(s.blocks) > MaxBlocksPerScope {
		s.blocks = s.blocks[1:]
	}
}

func (c *Cache) closeBlock(b *Block) {
	now := c.now()
	b.ClosedAt = &now
	b.Summary = summarize(b.Items)
	if vec, ok := c.embedder.Embed(context.Background(), b.Summary); ok {
		b.Embedding = vec
	}
}

func summarize(items []*Item) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += " | "
		}
		preview := it.Content
		if len(preview) > 80 {
			preview = preview[:80]
		}
		out += preview
	}
	return out
}

// Write inserts an item into the scope's open block, after checking for a
// semantic duplicate (cosine >= 0.92) in the open block and the last closed
// block. A duplicate is merged by boosting importance and refreshing
// last_access_at rather than inserted.
func (c *Cache) Write(ctx context.Context, scopeID string, kind ItemKind, content string, importance float64, fileRef string) (*Item, error) {
	if importance == 0 {
		importance = 0.5
	}
	s := c.scope(scopeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	vec, _ := c.embedder.Embed(ctx, content)
	now := c.now()

	if dup := c.findDuplicate(s, vec); dup != nil {
		dup.Importance = math.Min(1.0, dup.Importance+0.1)
		dup.LastAccessAt = now
		c.persist(scopeID, s)
		return dup, nil
	}

	open := c.openBlock(s)
	item := &Item{
		ID: uuid.NewString(), Kind: kind, Content: content, Importance: importance,
		FileRef: fileRef, Embedding: vec, CreatedAt: now, LastAccessAt: now,
	}
	open.Items = append(open.Items, item)

	if open.estimatedTokens() >= AutoCloseTokens {
		c.closeBlock(open)
	}

	c.persist(scopeID, s)
	return item, nil
}

// findDuplicate searches the open block plus the last closed block for an
// item whose embedding cosine similarity to vec is >= DedupThreshold.
func (c *Cache) findDuplicate(s *scopeState, vec []float64) *Item {
	if len(vec) == 0 || len(s.blocks) == 0 {
		return nil
	}

	n := len(s.blocks)
	candidates := []*Block{s.blocks[n-1]}
	if n >= 2 {
		candidates = append(candidates, s.blocks[n-2])
	}

	for _, b := range candidates {
		for _, it := range b.Items {
			if len(it.Embedding) == 0 {
				continue
			}
			if cosine(vec, it.Embedding) >= DedupThreshold {
				return it
			}
		}
	}
	return nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Compact force-closes the current open block and starts a new one,
// preserving learnings across conversation compaction.
func (c *Cache) Compact(ctx context.Context, scopeID string) error {
	s := c.scope(scopeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.blocks) == 0 {
		c.openBlock(s)
		c.persist(scopeID, s)
		return nil
	}
	last := s.blocks[len(s.blocks)-1]
	if last.ClosedAt == nil {
		c.closeBlock(last)
	}
	c.openBlock(s)
	c.persist(scopeID, s)
	return nil
}

// GC removes every closed block whose latest activity (its opened_at or the
// newest last_access_at among its items) is more than ItemTTL ago, and
// returns how many blocks it removed. It does not remove individual items,
// and it never removes the open block, however old. The cache is derived
// state; losing entries here is safe by design.
func (c *Cache) GC(ctx context.Context, scopeID string) int {
	s := c.scope(scopeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := c.now()
	removed := 0
	kept := s.blocks[:0]
	for _, b := range s.blocks {
		lastActivity := b.OpenedAt
		for _, it := range b.Items {
			if it.LastAccessAt.After(lastActivity) {
				lastActivity = it.LastAccessAt
			}
		}
		if now.Sub(lastActivity) > ItemTTL && b.ClosedAt != nil {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	s.blocks = kept
	c.persist(scopeID, s)
	return removed
}

// MemoryPack is the token-budgeted object returned by Read.
type MemoryPack struct {
	Summary          string   `json:"summary,omitempty"`
	Facts            []string `json:"facts,omitempty"`
	Decisions        []string `json:"decisions,omitempty"`
	Snippets         []string `json:"snippets,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	ArtifactPointers []string `json:"artifact_pointers,omitempty"`
	TokenCount       int      `json:"token_count"`
	Version          int      `json:"version"`
	IsFresh          bool     `json:"is_fresh"`
}

// Read answers a cache read per §4.9: list_all returns block summaries;
// query ranks blocks by similarity and fills token_budget greedily by
// importance x recency; neither returns a filter-only dump of everything.
func (c *Cache) Read(ctx context.Context, scopeID string, query string, tokenBudget int, listAll bool, includeContent bool) (*MemoryPack, error) {
	if tokenBudget <= 0 {
		tokenBudget = DefaultReadBudget
	}
	s := c.scope(scopeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.blocks) == 0 {
		return &MemoryPack{IsFresh: false}, nil
	}

	lastWrite := s.blocks[len(s.blocks)-1].OpenedAt
	for _, it := range s.blocks[len(s.blocks)-1].Items {
		if it.CreatedAt.After(lastWrite) {
			lastWrite = it.CreatedAt
		}
	}
	isFresh := c.now().Sub(lastWrite) <= FreshWindow

	if listAll {
		n := DefaultListAllSize
		blocks := newestBlocks(s.blocks, n)
		pack := &MemoryPack{IsFresh: isFresh}
		for _, b := range blocks {
			pack.Summary += b.Summary + "\n"
			if includeContent {
				appendItems(pack, b.Items)
			}
		}
		pack.TokenCount = estimateTokens(pack.Summary)
		return pack, nil
	}

	if query == "" {
		return &MemoryPack{IsFresh: isFresh}, nil
	}

	qvec, _ := c.embedder.Embed(ctx, query)
	ranked := rankBlocksBySimilarity(s.blocks, qvec)

	summaryBudget := int(float64(tokenBudget) * 0.2)
	itemBudget := tokenBudget - summaryBudget

	pack := &MemoryPack{IsFresh: isFresh}
	usedSummary, usedItems := 0, 0
	now := c.now()

	for _, b := range ranked {
		cost := estimateTokens(b.Summary)
		if usedSummary+cost > summaryBudget && pack.Summary != "" {
			continue
		}
		pack.Summary += b.Summary + "\n"
		usedSummary += cost

		items := rankItems(b.Items, now)
		for _, it := range items {
			cost := estimateTokens(it.Content)
			if usedItems+cost > itemBudget {
				continue
			}
			usedItems += cost
			it.LastAccessAt = now
			appendItem(pack, it)
		}
	}

	pack.TokenCount = usedSummary + usedItems
	return pack, nil
}

func newestBlocks(blocks []*Block, n int) []*Block {
	if len(blocks) <= n {
		reversed := make([]*Block, len(blocks))
		for i, b := range blocks {
			reversed[len(blocks)-1-i] = b
		}
		return reversed
	}
	out := make([]*Block, n)
	for i := 0; i < n; i++ {
		out[i] = blocks[len(blocks)-1-i]
	}
	return out
}

func rankBlocksBySimilarity(blocks []*Block, qvec []float64) []*Block {
	type scored struct {
		b     *Block
		score float64
	}
	scoredBlocks := make([]scored, 0, len(blocks))
	for _, b := range blocks {
		best := cosine(qvec, b.Embedding)
		for _, it := range b.Items {
			if s := cosine(qvec, it.Embedding); s > best {
				best = s
			}
		}
		scoredBlocks = append(scoredBlocks, scored{b, best})
	}
	sort.Slice(scoredBlocks, func(i, j int) bool { return scoredBlocks[i].score > scoredBlocks[j].score })
	out := make([]*Block, len(scoredBlocks))
	for i, sb := range scoredBlocks {
		out[i] = sb.b
	}
	return out
}

func rankItems(items []*Item, now time.Time) []*Item {
	type scored struct {
		it    *Item
		score float64
	}
	scoredItems := make([]scored, 0, len(items))
	for _, it := range items {
		age := now.Sub(it.LastAccessAt).Minutes()
		recencyDecay := math.Exp(-age / 30.0)
		scoredItems = append(scoredItems, scored{it, it.Importance * recencyDecay})
	}
	sort.Slice(scoredItems, func(i, j int) bool { return scoredItems[i].score > scoredItems[j].score })
	out := make([]*Item, len(scoredItems))
	for i, si := range scoredItems {
		out[i] = si.it
	}
	return out
}

func appendItems(pack *MemoryPack, items []*Item) {
	for _, it := range items {
		appendItem(pack, it)
	}
}

func appendItem(pack *MemoryPack, it *Item) {
	switch it.Kind {
	case KindFact:
		pack.Facts = append(pack.Facts, it.Content)
	case KindDecision:
		pack.Decisions = append(pack.Decisions, it.Content)
	case KindSnippet:
		pack.Snippets = append(pack.Snippets, it.Content)
	case KindWarning:
		pack.Warnings = append(pack.Warnings, it.Content)
	}
	if it.FileRef != "" {
		pack.ArtifactPointers = append(pack.ArtifactPointers, it.FileRef)
	}
}

// ParseKind validates an item kind from its wire representation.
func ParseKind(s string) (ItemKind, error) {
	switch ItemKind(s) {
	case KindFact, KindDecision, KindSnippet, KindWarning:
		return ItemKind(s), nil
	default:
		return "", apperrors.NewValidation("unknown cache item kind: " + s)
	}
}
