package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"amp/application/commands"
	"amp/application/queries"
)

// relationshipsHandler serves the /v1/relationships surface (§4.2/§6).
type relationshipsHandler struct{ rt *Router }

func (h *relationshipsHandler) create(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateRelationshipCommand
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

func (h *relationshipsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &queries.ListRelationshipsQuery{
		SourceID: q.Get("source"),
		TargetID: q.Get("target"),
		Type:     q.Get("type"),
	}
	result, err := h.rt.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *relationshipsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.rt.commandBus.Send(r.Context(), &commands.DeleteRelationshipCommand{ID: id}); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
