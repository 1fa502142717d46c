package scoring

import "errors"

// Validation errors. Both are caller mistakes and are detected before any
// store access.
var (
	ErrNameRequired = errors.New("name is required")
	ErrScoreInvalid = errors.New("score must be a finite, non-negative number")
)
