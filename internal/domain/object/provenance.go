package object

import apperrors "amp/pkg/errors"

// Provenance records who/what produced an object.
type Provenance struct {
	Agent   string   `json:"agent"`
	Model   string   `json:"model,omitempty"`
	Tools   []string `json:"tools,omitempty"`
	Summary string   `json:"summary"`
}

func (p Provenance) Validate() error {
	if p.Agent == "" {
		return apperrors.NewValidation("provenance.agent is required")
	}
	if p.Summary == "" {
		return apperrors.NewValidation("provenance.summary is required")
	}
	return nil
}

// Link is an advisory, inline back-reference. Authoritative edges live in
// the relationship store.
type Link struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}
