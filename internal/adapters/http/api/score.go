package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ScoreDependencies defines the interface for score submission.
type ScoreDependencies interface {
	Submit(ctx context.Context, rawName, rawScore any) (Record, error)
}

// ScoreHandler handles score submissions.
type ScoreHandler struct {
	deps         ScoreDependencies
	maxBodyBytes int64
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies, maxBodyBytes int64) *ScoreHandler {
	return &ScoreHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// scoreRequest keeps both fields untyped; the service decides how loosely
// they are coerced.
type scoreRequest struct {
	Name  any `json:"name"`
	Score any `json:"score"`
}

// HandlePostScore handles POST /score requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBodyTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, errors.Join(ErrBadRequest, err))
		return
	}

	rec, err := h.deps.Submit(r.Context(), req.Name, req.Score)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
