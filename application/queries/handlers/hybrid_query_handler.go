package handlers

import (
	"context"

	"amp/application/queries"
	qbus "amp/application/queries/bus"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/graph"
	"amp/internal/retrieval"
)

type HybridQueryHandler struct{ orchestrator *retrieval.Orchestrator }

func NewHybridQueryHandler(o *retrieval.Orchestrator) *HybridQueryHandler { return &HybridQueryHandler{o} }

func (h *HybridQueryHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query := q.(*queries.HybridQuery)

	req := retrieval.Request{
		Text:         query.Text,
		Hybrid:       query.Hybrid,
		Filter:       query.Filter(),
		Limit:        query.Limit,
		VectorWeight: query.VectorWeight,
		TextWeight:   query.TextWeight,
		GraphWeight:  query.GraphWeight,
	}

	if query.Graph != nil {
		spec, err := toGraphSpec(query.Graph)
		if err != nil {
			return nil, err
		}
		req.Graph = spec
	}

	return h.orchestrator.Query(ctx, req)
}

func toGraphSpec(dto *queries.GraphSpecDTO) (*graph.Spec, error) {
	starts := make([]shared.ID, 0, len(dto.StartNodes))
	for _, s := range dto.StartNodes {
		id, err := shared.ParseID(s)
		if err != nil {
			return nil, err
		}
		starts = append(starts, id)
	}

	var target *shared.ID
	if dto.TargetNode != "" {
		id, err := shared.ParseID(dto.TargetNode)
		if err != nil {
			return nil, err
		}
		target = &id
	}

	types := make([]relationship.Type, 0, len(dto.RelationTypes))
	for _, t := range dto.RelationTypes {
		parsed, err := relationship.ParseType(t)
		if err != nil {
			return nil, err
		}
		types = append(types, parsed)
	}

	direction := graph.Direction(dto.Direction)
	if direction == "" {
		direction = graph.DirectionOutbound
	}

	return &graph.Spec{
		StartNodes:    starts,
		Direction:     direction,
		MaxDepth:      dto.MaxDepth,
		Algorithm:     graph.Algorithm(dto.Algorithm),
		TargetNode:    target,
		RelationTypes: types,
	}, nil
}
