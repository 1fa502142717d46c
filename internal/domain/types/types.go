// Package types contains common types used across the application
package types

import "time"

// Record is a player's personal best, the only persisted entity.
type Record struct {
	Name      string    `json:"name"`
	Best      int64     `json:"best"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RanksBefore reports whether r is listed ahead of o on the leaderboard:
// higher best first, then the more recent submission, then name ascending.
func (r Record) RanksBefore(o Record) bool {
	if r.Best != o.Best {
		return r.Best > o.Best
	}
	if !r.UpdatedAt.Equal(o.UpdatedAt) {
		return r.UpdatedAt.After(o.UpdatedAt)
	}
	return r.Name < o.Name
}
