package rest

import (
	"net/http"

	"amp/application/commands"
	"amp/application/queries"
)

// cacheHandler serves the /v1/cache surface (§4.9/§6).
type cacheHandler struct{ rt *Router }

func (h *cacheHandler) read(w http.ResponseWriter, r *http.Request) {
	var q queries.ReadCacheQuery
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

func (h *cacheHandler) write(w http.ResponseWriter, r *http.Request) {
	var cmd commands.WriteCacheItemCommand
	if err := decodeBody(r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.rt.commandBus.Send(r.Context(), &cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *cacheHandler) compact(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CompactCacheCommand
	if err := decodeBody(r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.rt.commandBus.Send(r.Context(), &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (h *cacheHandler) gc(w http.ResponseWriter, r *http.Request) {
	var cmd commands.GCCacheCommand
	if err := decodeBody(r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.rt.commandBus.Send(r.Context(), &cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"removed": result})
}
