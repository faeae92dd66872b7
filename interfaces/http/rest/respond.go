package rest

import (
	"encoding/json"
	"net/http"

	apperrors "amp/pkg/errors"
)

// respondJSON writes data as the HTTP body, grounded on the teacher's
// RespondJSON helper but without its {success,data} envelope: the engine's
// wire format returns the payload directly on success.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	json.NewEncoder(w).Encode(data)
}

// errHandler renders the {error:{kind,message,details?}} envelope and logs
// the failure; Setup assigns it before any route can be hit.
var errHandler *apperrors.ErrorHandler

// respondError hands err to the router's error handler.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	errHandler.Handle(w, r, err)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperrors.NewValidation("request body is required")
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidation("malformed JSON body: " + err.Error())
	}
	return nil
}
