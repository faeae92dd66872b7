// Package queries defines the read-side CQRS operations for the engine.
package queries

import (
	"amp/internal/domain/object"
	"amp/internal/store"
	apperrors "amp/pkg/errors"
)

// GetObjectQuery fetches a single object by id.
type GetObjectQuery struct {
	ID string
}

func (q *GetObjectQuery) Validate() error {
	if q.ID == "" {
		return apperrors.NewValidation("id is required")
	}
	return nil
}

// ListObjectsQuery lists objects by tenant/project/type, paginated (§4.1).
type ListObjectsQuery struct {
	TenantID  string
	ProjectID string
	Types     []string
	Limit     int
	Offset    int
}

func (q *ListObjectsQuery) Validate() error {
	if q.Limit < 0 || q.Offset < 0 {
		return apperrors.NewValidation("limit and offset must be non-negative")
	}
	return nil
}

func (q *ListObjectsQuery) Filter() store.Filter {
	types := make([]object.Type, 0, len(q.Types))
	for _, t := range q.Types {
		if parsed, err := object.ParseType(t); err == nil {
			types = append(types, parsed)
		}
	}
	return store.Filter{TenantID: q.TenantID, ProjectID: q.ProjectID, Types: types}
}

// ListRelationshipsQuery lists edges by any subset of source/target/type.
type ListRelationshipsQuery struct {
	SourceID string
	TargetID string
	Type     string
}

func (q *ListRelationshipsQuery) Validate() error { return nil }

// LeaseStatusQuery reports the observational status of a resource key.
type LeaseStatusQuery struct {
	ResourceKey string
}

func (q *LeaseStatusQuery) Validate() error {
	if q.ResourceKey == "" {
		return apperrors.NewValidation("resource_key is required")
	}
	return nil
}

// ReadCacheQuery answers a scope's episodic cache read (§4.9).
type ReadCacheQuery struct {
	ScopeID        string `json:"scope_id"`
	Query          string `json:"query"`
	TokenBudget    int    `json:"token_budget"`
	ListAll        bool   `json:"list_all"`
	IncludeContent bool   `json:"include_content"`
}

func (q *ReadCacheQuery) Validate() error {
	if q.ScopeID == "" {
		return apperrors.NewValidation("scope_id is required")
	}
	return nil
}

// HybridQuery is the §4.7 retrieval request.
type HybridQuery struct {
	Text         string        `json:"text"`
	Hybrid       bool          `json:"hybrid"`
	TenantID     string        `json:"tenant_id"`
	ProjectID    string        `json:"project_id"`
	Types        []string      `json:"types"`
	Limit        int           `json:"limit"`
	Graph        *GraphSpecDTO `json:"graph"`
	VectorWeight *float64      `json:"vector_weight"`
	TextWeight   *float64      `json:"text_weight"`
	GraphWeight  *float64      `json:"graph_weight"`
}

// GraphSpecDTO is the wire shape of a traversal request embedded in a query.
type GraphSpecDTO struct {
	StartNodes    []string `json:"start_nodes"`
	Direction     string   `json:"direction"`
	MaxDepth      int      `json:"max_depth"`
	Algorithm     string   `json:"algorithm"`
	TargetNode    string   `json:"target_node"`
	RelationTypes []string `json:"relation_types"`
}

func (q *HybridQuery) Validate() error {
	if q.Graph != nil {
		if q.Graph.MaxDepth < 1 || q.Graph.MaxDepth > 10 {
			return apperrors.NewValidation("max_depth must be in [1,10]")
		}
	}
	return nil
}

func (q *HybridQuery) Filter() store.Filter {
	types := make([]object.Type, 0, len(q.Types))
	for _, t := range q.Types {
		if parsed, err := object.ParseType(t); err == nil {
			types = append(types, parsed)
		}
	}
	return store.Filter{TenantID: q.TenantID, ProjectID: q.ProjectID, Types: types}
}
