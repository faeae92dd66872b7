package shared

import apperrors "amp/pkg/errors"

var (
	ErrEmptyID   = apperrors.NewValidation("id must not be empty")
	ErrInvalidID = apperrors.NewValidation("id must be a valid UUID")
)
