package handlers

import "amp/internal/domain/relationship"

func relTypeOrNil(s string) *relationship.Type {
	if s == "" {
		return nil
	}
	t, err := relationship.ParseType(s)
	if err != nil {
		return nil
	}
	return &t
}
