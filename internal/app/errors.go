package service

import "errors"

// Sentinel kinds for service errors. Validation errors live in the scoring
// package.
var (
	ErrStorage    = errors.New("storage failure")
	ErrNotStarted = errors.New("service not started")
)
