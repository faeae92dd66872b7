package object

import apperrors "amp/pkg/errors"

// Type is the discriminator for the nine memory object kinds.
type Type string

const (
	TypeSymbol       Type = "symbol"
	TypeDecision     Type = "decision"
	TypeChangeset    Type = "changeset"
	TypeRun          Type = "run"
	TypeNote         Type = "note"
	TypeFile         Type = "file"
	TypeDirectory    Type = "directory"
	TypeProject      Type = "project"
	TypeArtifactCore Type = "artifact_core"
)

var validTypes = map[Type]bool{
	TypeSymbol: true, TypeDecision: true, TypeChangeset: true,
	TypeRun: true, TypeNote: true, TypeFile: true,
	TypeDirectory: true, TypeProject: true, TypeArtifactCore: true,
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !validTypes[t] {
		return "", apperrors.NewValidation("unknown object type: " + s)
	}
	return t, nil
}

// textFields names the payload fields whose change, on update, must enqueue
// a re-embedding task (§4.1). Only types with a meaningful "prose" surface
// are listed; the rest never trigger re-embedding.
var textFields = map[Type][]string{
	TypeSymbol:    {"documentation", "signature"},
	TypeDecision:  {"rationale", "problem", "outcome"},
	TypeChangeset: {"description", "diff_summary"},
	TypeRun:       {"input_summary"},
	TypeNote:      {"content"},
}

func (t Type) TextFields() []string {
	return textFields[t]
}
