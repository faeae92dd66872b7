package rest

import (
	"net/http"

	"amp/application/queries"
)

// queryHandler serves the hybrid retrieval endpoint (§4.7/§6).
type queryHandler struct{ rt *Router }

func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var q queries.HybridQuery
	if err := decodeBody(r, &q); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.rt.queryBus.Ask(r.Context(), &q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
