// Package shared holds the value objects reused across every memory object,
// relationship, lease and cache record in the engine.
package shared

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ID is a value object wrapping a UUID identifier. It is used for object,
// relationship, and lease identifiers alike.
type ID struct {
	value string
}

// NewID generates a fresh random ID.
func NewID() ID {
	return ID{value: uuid.New().String()}
}

// ParseID validates and wraps an externally supplied identifier.
func ParseID(s string) (ID, error) {
	if s == "" {
		return ID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(s); err != nil {
		return ID{}, ErrInvalidID
	}
	return ID{value: s}, nil
}

func (id ID) String() string   { return id.value }
func (id ID) IsZero() bool     { return id.value == "" }
func (id ID) Equals(o ID) bool { return id.value == o.value }

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id.value = s
	return nil
}
