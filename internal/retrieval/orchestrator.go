// Package retrieval implements the Hybrid Retrieval Orchestrator (C7):
// parallel fan-out to the text, vector, and graph engines, RRF fusion, and
// graceful per-branch degradation.
package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"amp/internal/domain/object"
	"amp/internal/domain/shared"
	"amp/internal/embedding"
	"amp/internal/graph"
	"amp/internal/search/text"
	"amp/internal/search/vector"
	"amp/internal/store"
)

const branchCeiling = 5 * time.Second

// Request mirrors the §4.7 request shape.
type Request struct {
	Text         string
	Hybrid       bool
	Filter       store.Filter
	Limit        int
	Graph        *graph.Spec
	VectorWeight *float64
	TextWeight   *float64
	GraphWeight  *float64
}

// Result is one fused, enriched row of the response.
type Result struct {
	Object  *object.Object `json:"object"`
	Score   float64        `json:"score"`
	Sources []string       `json:"sources"`
	Ranks   map[string]int `json:"ranks,omitempty"`
	Depth   *int           `json:"depth,omitempty"`
	Path    []graph.Step   `json:"path,omitempty"`
}

// Stats is the retrieval_stats block of the response.
type Stats struct {
	Errors []string `json:"errors,omitempty"`
}

// Response is the full §4.7 query result.
type Response struct {
	Results         []Result `json:"results"`
	Total           int      `json:"total"`
	TraceID         string   `json:"trace_id"`
	ExecutionTimeMS int64    `json:"execution_time_ms"`
	RetrievalStats  Stats    `json:"retrieval_stats"`
}

// Orchestrator wires C4/C5/C6 together behind the selection policy.
type Orchestrator struct {
	objects   store.ObjectStore
	textSrch  *text.Searcher
	vecSrch   *vector.Searcher
	graphEng  *graph.Engine
	embedder  embedding.Client
}

func New(objects store.ObjectStore, textSrch *text.Searcher, vecSrch *vector.Searcher, graphEng *graph.Engine, embedder embedding.Client) *Orchestrator {
	return &Orchestrator{objects: objects, textSrch: textSrch, vecSrch: vecSrch, graphEng: graphEng, embedder: embedder}
}

func (o *Orchestrator) weights(req Request) Weights {
	w := DefaultWeights
	if req.VectorWeight != nil {
		w.Vector = *req.VectorWeight
	}
	if req.TextWeight != nil {
		w.Text = *req.TextWeight
	}
	if req.GraphWeight != nil {
		w.Graph = *req.GraphWeight
	}
	return w
}

// Query implements the selection policy and fusion of §4.7.
func (o *Orchestrator) Query(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	stats := Stats{}

	hasText := req.Text != ""
	hasGraph := req.Graph != nil

	var fused []fusedResult

	switch {
	case hasGraph && !hasText && !req.Hybrid:
		// Pure graph traversal.
		hits, err := o.runGraph(ctx, *req.Graph, &stats)
		if err != nil {
			return nil, err
		}
		fused = graphOnlyFusion(hits)

	case req.Hybrid || (hasText && hasGraph):
		fused = o.hybrid(ctx, req, &stats)

	case hasText:
		fused = o.textThenVector(ctx, req, &stats)

	default:
		// Filter-only listing, sorted by updated_at desc (List already does this).
		objs, err := o.objects.List(ctx, req.Filter, req.Limit, 0)
		if err != nil {
			return nil, err
		}
		return o.buildResponse(objs, nil, start, stats, req.Limit)
	}

	return o.materialize(ctx, fused, start, stats, req.Limit)
}

func (o *Orchestrator) runGraph(ctx context.Context, spec graph.Spec, stats *Stats) ([]graph.Hit, error) {
	gctx, cancel := context.WithTimeout(ctx, branchCeiling)
	defer cancel()
	hits, err := o.graphEng.Run(gctx, spec)
	if err != nil {
		stats.Errors = append(stats.Errors, "graph: "+err.Error())
		return nil, err
	}
	return hits, nil
}

func graphOnlyFusion(hits []graph.Hit) []fusedResult {
	out := make([]fusedResult, 0, len(hits))
	for i, h := range hits {
		depth := h.Depth
		out = append(out, fusedResult{
			ObjectID: h.ObjectID.String(),
			Score:    1.0 / (rrfConstant + float64(i+1)),
			Sources:  []string{"graph"},
			Ranks:    map[string]int{"graph": i + 1},
			Depth:    &depth,
			Path:     h.Path,
		})
	}
	return out
}

// hybrid fans out text, vector, and (if provided) graph concurrently, each
// bounded by its own ceiling and degrading to an empty list on failure.
func (o *Orchestrator) hybrid(ctx context.Context, req Request, stats *Stats) []fusedResult {
	var wg sync.WaitGroup
	var mu sync.Mutex

	var textList, vectorList rankedList
	var graphHits []graph.Hit

	wg.Add(1)
	go func() {
		defer wg.Done()
		tctx, cancel := context.WithTimeout(ctx, branchCeiling)
		defer cancel()
		results, err := o.textSrch.Search(tctx, req.Text, req.Filter, req.Limit)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			stats.Errors = append(stats.Errors, "text: "+err.Error())
			return
		}
		for _, r := range results {
			textList = append(textList, r.ObjectID)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		vctx, cancel := context.WithTimeout(ctx, branchCeiling)
		defer cancel()
		vec, ok := o.embedder.Embed(vctx, req.Text)
		if !ok {
			return // graceful degradation; not recorded as an error
		}
		results, err := o.vecSrch.Search(vctx, vec, req.Filter, req.Limit)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			stats.Errors = append(stats.Errors, "vector: "+err.Error())
			return
		}
		for _, r := range results {
			vectorList = append(vectorList, r.ObjectID)
		}
	}()

	if req.Graph != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := o.runGraph(ctx, *req.Graph, stats)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				return
			}
			graphHits = hits
		}()
	}

	wg.Wait()

	w := o.weights(req)
	return fuse(vectorList, textList, graphHits, w, o.updatedAtTiebreak())
}

// textThenVector implements selection rule 3: text is mandatory, vector is
// attempted opportunistically when an embedding can be produced.
func (o *Orchestrator) textThenVector(ctx context.Context, req Request, stats *Stats) []fusedResult {
	tctx, cancel := context.WithTimeout(ctx, branchCeiling)
	defer cancel()
	textResults, err := o.textSrch.Search(tctx, req.Text, req.Filter, req.Limit)
	var textList rankedList
	if err != nil {
		stats.Errors = append(stats.Errors, "text: "+err.Error())
	} else {
		for _, r := range textResults {
			textList = append(textList, r.ObjectID)
		}
	}

	var vectorList rankedList
	vctx, vcancel := context.WithTimeout(ctx, branchCeiling)
	defer vcancel()
	if vec, ok := o.embedder.Embed(vctx, req.Text); ok {
		vecResults, err := o.vecSrch.Search(vctx, vec, req.Filter, req.Limit)
		if err != nil {
			stats.Errors = append(stats.Errors, "vector: "+err.Error())
		} else {
			for _, r := range vecResults {
				vectorList = append(vectorList, r.ObjectID)
			}
		}
	}

	w := o.weights(req)
	return fuse(vectorList, textList, nil, w, o.updatedAtTiebreak())
}

func (o *Orchestrator) updatedAtTiebreak() func(a, b string) bool {
	return func(a, b string) bool {
		oa, errA := o.objects.Get(context.Background(), mustID(a))
		ob, errB := o.objects.Get(context.Background(), mustID(b))
		if errA != nil || errB != nil {
			return a < b
		}
		if oa.UpdatedAt().Equal(ob.UpdatedAt()) {
			return a < b
		}
		return oa.UpdatedAt().After(ob.UpdatedAt())
	}
}

func mustID(s string) shared.ID {
	id, _ := shared.ParseID(s)
	return id
}

func (o *Orchestrator) materialize(ctx context.Context, fused []fusedResult, start time.Time, stats Stats, limit int) (*Response, error) {
	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		obj, err := o.objects.Get(ctx, mustID(f.ObjectID))
		if err != nil {
			continue // object deleted mid-query: drop silently rather than fail the whole request
		}
		results = append(results, Result{Object: obj, Score: f.Score, Sources: f.Sources, Ranks: f.Ranks, Depth: f.Depth, Path: f.Path})
	}
	return &Response{
		Results:         results,
		Total:           len(fused),
		TraceID:         uuid.NewString(),
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		RetrievalStats:  stats,
	}, nil
}

func (o *Orchestrator) buildResponse(objs []*object.Object, _ []graph.Hit, start time.Time, stats Stats, limit int) (*Response, error) {
	results := make([]Result, 0, len(objs))
	for _, obj := range objs {
		results = append(results, Result{Object: obj, Score: 0, Sources: nil})
	}
	return &Response{
		Results:         results,
		Total:           len(results),
		TraceID:         uuid.NewString(),
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		RetrievalStats:  stats,
	}, nil
}
