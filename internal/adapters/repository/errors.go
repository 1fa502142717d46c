package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("player not found")
	ErrInvalidLimit   = errors.New("invalid leaderboard limit")
	ErrUnsupportedDSN = errors.New("unsupported database url")
	ErrClosed         = errors.New("store is closed")
)
