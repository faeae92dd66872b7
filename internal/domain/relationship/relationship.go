// Package relationship models the typed directed edges connecting objects.
package relationship

import (
	"time"

	"amp/internal/domain/shared"
	apperrors "amp/pkg/errors"
)

// Type is one of the seven relationship kinds named by the protocol.
type Type string

const (
	TypeDependsOn  Type = "depends_on"
	TypeDefinedIn  Type = "defined_in"
	TypeCalls      Type = "calls"
	TypeJustifiedBy Type = "justified_by"
	TypeModifies   Type = "modifies"
	TypeImplements Type = "implements"
	TypeProduced   Type = "produced"
)

// AllTypes is the default relation_types filter when a caller omits one.
var AllTypes = []Type{TypeDependsOn, TypeDefinedIn, TypeCalls, TypeJustifiedBy, TypeModifies, TypeImplements, TypeProduced}

var validTypes = map[Type]bool{
	TypeDependsOn: true, TypeDefinedIn: true, TypeCalls: true,
	TypeJustifiedBy: true, TypeModifies: true, TypeImplements: true, TypeProduced: true,
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !validTypes[t] {
		return "", apperrors.NewValidation("unknown relationship type: " + s)
	}
	return t, nil
}

// Relationship is a directed edge source -> target, scoped to the pair's
// shared tenant (invariant R1).
type Relationship struct {
	ID        shared.ID `json:"id"`
	Type      Type      `json:"type"`
	SourceID  shared.ID `json:"source_id"`
	TargetID  shared.ID `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// New constructs a relationship; endpoint existence (R1) is checked by the
// store, not here, since it requires a lookup.
func New(id shared.ID, relType Type, source, target shared.ID, now time.Time) (*Relationship, error) {
	if source.Equals(target) {
		return nil, apperrors.NewValidation("relationship source and target must differ")
	}
	return &Relationship{ID: id, Type: relType, SourceID: source, TargetID: target, CreatedAt: now}, nil
}

// Key returns the (type, source, target) tuple that must be unique per R2.
func (r *Relationship) Key() Key {
	return Key{Type: r.Type, SourceID: r.SourceID.String(), TargetID: r.TargetID.String()}
}

// Key is the idempotent-upsert identity of a relationship.
type Key struct {
	Type     Type
	SourceID string
	TargetID string
}
