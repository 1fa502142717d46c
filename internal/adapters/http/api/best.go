package api

import (
	"context"
	"net/http"
)

// BestDependencies defines the interface for single-player lookups.
type BestDependencies interface {
	Best(ctx context.Context, rawName any) (*Record, error)
}

// BestHandler handles best-score lookups.
type BestHandler struct {
	deps BestDependencies
}

// NewBestHandler creates a new best handler.
func NewBestHandler(deps BestDependencies) *BestHandler {
	return &BestHandler{deps: deps}
}

type bestResponse struct {
	Item *Record `json:"item"`
}

// HandleGetBest handles GET /best?name=S requests. A player without a
// record yields {"item": null}.
func (h *BestHandler) HandleGetBest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Best(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, bestResponse{Item: rec})
}
