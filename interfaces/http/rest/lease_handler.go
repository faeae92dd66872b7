package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"amp/application/commands"
	"amp/application/queries"
)

// leaseHandler serves the /v1/leases surface (§4.8/§6).
type leaseHandler struct{ rt *Router }

func (h *leaseHandler) acquire(w http.ResponseWriter, r *http.Request) {
	var cmd commands.AcquireLeaseCommand
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

func (h *leaseHandler) renew(w http.ResponseWriter, r *http.Request) {
	var cmd commands.RenewLeaseCommand
	if err := decodeBody(r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.rt.commandBus.Send(r.Context(), &cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *leaseHandler) release(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ReleaseLeaseCommand
	if err := decodeBody(r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.rt.commandBus.Send(r.Context(), &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *leaseHandler) status(w http.ResponseWriter, r *http.Request) {
	resourceKey := chi.URLParam(r, "resourceKey")
	result, err := h.rt.queryBus.Ask(r.Context(), &queries.LeaseStatusQuery{ResourceKey: resourceKey})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
