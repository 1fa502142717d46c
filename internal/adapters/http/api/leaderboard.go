package api

import (
	"context"
	"net/http"

	"github.com/okian/hiscore/internal/domain/scoring"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Top(ctx context.Context, limit int) ([]Record, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

type leaderboardResponse struct {
	Items []Record `json:"items"`
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests. Out of
// range limits are clamped, never rejected.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Top(r.Context(), scoring.ParseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	if items == nil {
		items = []Record{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Items: items})
}
