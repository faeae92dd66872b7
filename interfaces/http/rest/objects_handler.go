package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"amp/application/commands"
	"amp/application/queries"
)

// objectsHandler serves the /v1/objects surface (§4.1/§6).
type objectsHandler struct{ rt *Router }

func (h *objectsHandler) create(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateObjectCommand
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

func (h *objectsHandler) createBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []*commands.CreateObjectCommand `json:"items"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.rt.commandBus.Send(r.Context(), &commands.CreateObjectBatchCommand{Items: body.Items})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *objectsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &queries.ListObjectsQuery{
		TenantID:  q.Get("tenant_id"),
		ProjectID: q.Get("project_id"),
		Limit:     atoiOrZero(q.Get("limit")),
		Offset:    atoiOrZero(q.Get("offset")),
	}
	if types := q.Get("types"); types != "" {
		query.Types = splitCSV(types)
	}
	result, err := h.rt.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *objectsHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.rt.queryBus.Ask(r.Context(), &queries.GetObjectQuery{ID: id})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *objectsHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch map[string]interface{}
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.rt.commandBus.Send(r.Context(), &commands.UpdateObjectCommand{ID: id, Patch: patch})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *objectsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.rt.commandBus.Send(r.Context(), &commands.DeleteObjectCommand{ID: id}); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
