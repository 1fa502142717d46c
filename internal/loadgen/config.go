// Package loadgen drives a running leaderboard over HTTP: it submits
// generated scores concurrently and then checks that every player's best and
// the top of the board agree with what was sent.
package loadgen

import (
	"errors"
	"time"
)

// Default configuration values.
const (
	DefaultPlayers              = 200
	DefaultSubmissionsPerPlayer = 5
	DefaultTopN                 = 50
	DefaultWorkers              = 16
	DefaultTimeout              = 10 * time.Second
	DefaultMaxScore             = 1_000_000
)

// ErrVerification is returned when the service disagrees with the submitted data.
var ErrVerification = errors.New("verification failed")

// Config holds configuration for a load run.
type Config struct {
	BaseURL              string        // Base URL of the service
	Players              int           // Distinct players to generate
	SubmissionsPerPlayer int           // Scores sent for each player
	TopN                 int           // Leaderboard size to fetch and check
	Workers              int           // Concurrent HTTP workers
	RPS                  float64       // Submission rate limit; 0 means unlimited
	MaxScore             int           // Upper bound for generated scores
	Seed                 uint64        // Generator seed; 0 picks a random one
	Timeout              time.Duration // HTTP request timeout
	OutputFile           string        // Optional JSON dump of the submissions
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Players <= 0 {
		c.Players = DefaultPlayers
	}
	if c.SubmissionsPerPlayer <= 0 {
		c.SubmissionsPerPlayer = DefaultSubmissionsPerPlayer
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxScore <= 0 {
		c.MaxScore = DefaultMaxScore
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Submission is one POST /score body.
type Submission struct {
	Name  string `json:"name"`
	Score int64  `json:"score"`
}

// Entry is a stored record as returned by the API.
type Entry struct {
	Name      string    `json:"name"`
	Best      int64     `json:"best"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats holds run statistics.
type Stats struct {
	RunID              string
	Players            int
	Submitted          int
	Accepted           int
	Failed             int
	BestChecked        int
	BestMismatches     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
