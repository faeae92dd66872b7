// Package graph implements the iterative, cycle-safe multi-hop traversal
// engine (C6): collect, path, and shortest algorithms over the relationship
// store. Per spec §9's design note, every algorithm here uses an explicit
// queue/stack — never host-language recursion — so traversal depth is
// bounded and cancellation-responsive.
package graph

import (
	"context"

	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/store"
	apperrors "amp/pkg/errors"
)

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
	DirectionBoth     Direction = "both"
)

type Algorithm string

const (
	AlgorithmCollect  Algorithm = "collect"
	AlgorithmPath     Algorithm = "path"
	AlgorithmShortest Algorithm = "shortest"
)

// Spec is a single traversal request.
type Spec struct {
	StartNodes    []shared.ID
	Direction     Direction
	MaxDepth      int
	Algorithm     Algorithm
	TargetNode    *shared.ID
	RelationTypes []relationship.Type
}

// Step is one edge traversed on a path.
type Step struct {
	RelationshipID shared.ID         `json:"relationship_id"`
	Type           relationship.Type `json:"type"`
	NodeID         shared.ID         `json:"node_id"`
}

// Hit is one traversal result: a reached object id, the depth it was first
// reached at, and (for path/shortest) the representative path to it.
type Hit struct {
	ObjectID shared.ID
	Depth    int
	Path     []Step
}

// Engine runs traversals over a RelationshipStore.
type Engine struct {
	relationships store.RelationshipStore
}

func New(relationships store.RelationshipStore) *Engine {
	return &Engine{relationships: relationships}
}

// Validate checks the depth bound before any traversal begins (§4.6).
func (spec Spec) Validate() error {
	if spec.MaxDepth < 1 || spec.MaxDepth > 10 {
		return apperrors.NewValidation("max_depth must be in [1,10]")
	}
	return nil
}

type edge struct {
	rel  *relationship.Relationship
	to   shared.ID
	from shared.ID
}

// neighbors returns every (relationship, reached-node) pair reachable from
// "from" given the spec's direction and relation-type filter.
func (e *Engine) neighbors(ctx context.Context, from shared.ID, spec Spec) ([]edge, error) {
	relSet := make(map[relationship.Type]bool, len(spec.RelationTypes))
	types := spec.RelationTypes
	if len(types) == 0 {
		types = relationship.AllTypes
	}
	for _, t := range types {
		relSet[t] = true
	}

	var out []edge

	if spec.Direction == DirectionOutbound || spec.Direction == DirectionBoth {
		rels, err := e.relationships.List(ctx, &from, nil, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			if relSet[r.Type] {
				out = append(out, edge{rel: r, to: r.TargetID, from: r.SourceID})
			}
		}
	}
	if spec.Direction == DirectionInbound || spec.Direction == DirectionBoth {
		rels, err := e.relationships.List(ctx, nil, &from, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			if relSet[r.Type] {
				out = append(out, edge{rel: r, to: r.SourceID, from: r.TargetID})
			}
		}
	}
	return out, nil
}

// Run dispatches to the algorithm named in spec.
func (e *Engine) Run(ctx context.Context, spec Spec) ([]Hit, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Algorithm {
	case AlgorithmCollect:
		return e.collect(ctx, spec)
	case AlgorithmPath:
		return e.path(ctx, spec)
	case AlgorithmShortest:
		return e.shortest(ctx, spec)
	default:
		return nil, apperrors.NewValidation("unknown traversal algorithm: " + string(spec.Algorithm))
	}
}

// collect performs a breadth-first expansion from every start node at once,
// visiting each reachable object at most once and excluding depth 0.
func (e *Engine) collect(ctx context.Context, spec Spec) ([]Hit, error) {
	visited := make(map[string]bool, len(spec.StartNodes))
	for _, s := range spec.StartNodes {
		visited[s.String()] = true
	}

	type frontierNode struct {
		id    shared.ID
		depth int
	}
	frontier := make([]frontierNode, 0, len(spec.StartNodes))
	for _, s := range spec.StartNodes {
		frontier = append(frontier, frontierNode{id: s, depth: 0})
	}

	var hits []Hit
	for depth := 1; depth <= spec.MaxDepth && len(frontier) > 0; depth++ {
		var next []frontierNode
		for _, fn := range frontier {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewTimeout("graph collect")
			default:
			}
			edges, err := e.neighbors(ctx, fn.id, spec)
			if err != nil {
				return nil, err
			}
			for _, ed := range edges {
				key := ed.to.String()
				if visited[key] {
					continue
				}
				visited[key] = true
				hits = append(hits, Hit{ObjectID: ed.to, Depth: depth})
				next = append(next, frontierNode{id: ed.to, depth: depth})
			}
		}
		frontier = next
	}
	return hits, nil
}

// path enumerates all simple paths up to max_depth using an explicit stack,
// yielding each distinct endpoint once with the first-found path.
func (e *Engine) path(ctx context.Context, spec Spec) ([]Hit, error) {
	type frame struct {
		node  shared.ID
		path  []Step
		onPath map[string]bool
	}

	seenEndpoint := make(map[string]bool)
	var hits []Hit

	var stack []frame
	for _, s := range spec.StartNodes {
		stack = append(stack, frame{node: s, path: nil, onPath: map[string]bool{s.String(): true}})
	}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return nil, apperrors.NewTimeout("graph path")
		default:
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(f.path) > 0 && !seenEndpoint[f.node.String()] {
			seenEndpoint[f.node.String()] = true
			hits = append(hits, Hit{ObjectID: f.node, Depth: len(f.path), Path: f.path})
		}

		if len(f.path) >= spec.MaxDepth {
			continue
		}

		edges, err := e.neighbors(ctx, f.node, spec)
		if err != nil {
			return nil, err
		}
		for _, ed := range edges {
			if f.onPath[ed.to.String()] {
				continue // keep paths simple: no repeated node
			}
			newOnPath := make(map[string]bool, len(f.onPath)+1)
			for k := range f.onPath {
				newOnPath[k] = true
			}
			newOnPath[ed.to.String()] = true

			newPath := make([]Step, len(f.path), len(f.path)+1)
			copy(newPath, f.path)
			newPath = append(newPath, Step{RelationshipID: ed.rel.ID, Type: ed.rel.Type, NodeID: ed.to})

			stack = append(stack, frame{node: ed.to, path: newPath, onPath: newOnPath})
		}
	}
	return hits, nil
}

// shortest runs a uniform-cost (edge weight 1) breadth-first search from the
// start set to target_node, expanding one depth level at a time and
// returning the moment the target is first discovered as a neighbor.
func (e *Engine) shortest(ctx context.Context, spec Spec) ([]Hit, error) {
	if spec.TargetNode == nil {
		return nil, apperrors.NewValidation("shortest traversal requires target_node")
	}
	target := *spec.TargetNode

	type queued struct {
		id   shared.ID
		path []Step
	}
	visited := make(map[string]bool, len(spec.StartNodes))
	queue := make([]queued, 0, len(spec.StartNodes))
	for _, s := range spec.StartNodes {
		if s.Equals(target) {
			return []Hit{{ObjectID: s, Depth: 0, Path: nil}}, nil
		}
		visited[s.String()] = true
		queue = append(queue, queued{id: s, path: nil})
	}

	for depth := 1; depth <= spec.MaxDepth && len(queue) > 0; depth++ {
		var next []queued
		for _, q := range queue {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewTimeout("graph shortest")
			default:
			}
			edges, err := e.neighbors(ctx, q.id, spec)
			if err != nil {
				return nil, err
			}
			for _, ed := range edges {
				key := ed.to.String()
				if visited[key] {
					continue
				}
				newPath := make([]Step, len(q.path), len(q.path)+1)
				copy(newPath, q.path)
				newPath = append(newPath, Step{RelationshipID: ed.rel.ID, Type: ed.rel.Type, NodeID: ed.to})

				if ed.to.Equals(target) {
					return []Hit{{ObjectID: ed.to, Depth: depth, Path: newPath}}, nil
				}
				visited[key] = true
				next = append(next, queued{id: ed.to, path: newPath})
			}
		}
		queue = next
	}

	return nil, apperrors.NewNoPath(spec.StartNodes[0].String(), target.String())
}
