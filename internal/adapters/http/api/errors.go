package api

import (
	"errors"
	"net/http"

	"github.com/okian/hiscore/internal/domain/scoring"
)

// Machine-readable error codes.
const (
	codeNameRequired     = "name_required"
	codeScoreInvalid     = "score_invalid"
	codeBadRequest       = "bad_request"
	codeBodyTooLarge     = "body_too_large"
	codeDBError          = "db_error"
	codeRateLimited      = "rate_limited"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrRateLimited      = errors.New("too many requests")
	ErrNotFound         = errors.New("route not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// classify maps a service error to a status and code. Anything that is not
// a caller mistake is a storage failure.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, scoring.ErrNameRequired):
		return http.StatusBadRequest, codeNameRequired
	case errors.Is(err, scoring.ErrScoreInvalid):
		return http.StatusBadRequest, codeScoreInvalid
	default:
		return http.StatusInternalServerError, codeDBError
	}
}
