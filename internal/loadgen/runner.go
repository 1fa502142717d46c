package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hiscore/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete load run: health check, submissions, then
// verification of bests and leaderboard order.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	log := logger.Named("loadgen")

	stats := &Stats{
		RunID:     uuid.NewString(),
		Players:   cfg.Players,
		StartTime: time.Now(),
	}

	log.Info(ctx, "starting leaderboard load run",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("submissionsPerPlayer", cfg.SubmissionsPerPlayer),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rps", cfg.RPS),
		logger.Duration("timeout", cfg.Timeout),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	plan := generate(cfg, stats.RunID)
	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, plan.Submissions); err != nil {
			log.Warn(ctx, "failed to save submissions", logger.String("file", cfg.OutputFile), logger.Error(err))
		}
	}

	if err := submitAll(ctx, cfg, c, plan.Submissions, stats); err != nil {
		return stats, fmt.Errorf("submission interrupted: %w", err)
	}

	// Failed submissions make the expected maxima unreliable.
	if stats.Failed > 0 {
		finish(ctx, stats)
		return stats, fmt.Errorf("%w: %d submissions failed", ErrVerification, stats.Failed)
	}

	if err := verifyBests(ctx, cfg, c, plan.Expected, stats); err != nil {
		finish(ctx, stats)
		return stats, err
	}
	if err := verifyLeaderboard(ctx, cfg, c, plan.Expected, stats); err != nil {
		finish(ctx, stats)
		return stats, err
	}

	finish(ctx, stats)
	log.Info(ctx, "load run completed successfully", logger.String("runID", stats.RunID))
	return stats, nil
}

// finish stamps the end time and logs the final statistics.
func finish(ctx context.Context, stats *Stats) {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Named("loadgen").Info(ctx, "final statistics",
		logger.Int("players", stats.Players),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("failed", stats.Failed),
		logger.Int("bestChecked", stats.BestChecked),
		logger.Int("bestMismatches", stats.BestMismatches),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}

// saveSubmissions writes the generated submissions as a JSON array.
func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(subs); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write submissions: %w", err)
	}
	return f.Close()
}
