package loadgen

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hiscore/pkg/logger"
)

// maxReported bounds how many individual mismatches are logged.
const maxReported = 10

// verifyBests reads every generated player's best back and compares it to the
// highest score that was sent for them.
func verifyBests(ctx context.Context, cfg Config, c *client, expected map[string]int64, stats *Stats) error {
	log := logger.Named("loadgen")
	log.Info(ctx, "verifying personal bests", logger.Int("players", len(expected)))

	var checked, mismatched atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for name, want := range expected {
		g.Go(func() error {
			got, err := c.best(gctx, name)
			checked.Add(1)
			switch {
			case err != nil:
				mismatched.Add(1)
				log.Warn(gctx, "best lookup failed", logger.String("name", name), logger.Error(err))
			case got == nil || got.Best != want:
				if n := mismatched.Add(1); n <= maxReported {
					var have any
					if got != nil {
						have = got.Best
					}
					log.Warn(gctx, "best mismatch", logger.String("name", name), logger.Int64("want", want), logger.Any("got", have))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.BestChecked = int(checked.Load())
	stats.BestMismatches = int(mismatched.Load())
	if err := ctx.Err(); err != nil {
		return err
	}
	if stats.BestMismatches > 0 {
		return fmt.Errorf("%w: %d of %d bests differ", ErrVerification, stats.BestMismatches, stats.BestChecked)
	}
	return nil
}

// verifyLeaderboard fetches the top of the board and checks its order and
// the bests of any generated players that made it.
func verifyLeaderboard(ctx context.Context, cfg Config, c *client, expected map[string]int64, stats *Stats) error {
	log := logger.Named("loadgen")

	entries, err := c.leaderboard(ctx, cfg.TopN)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(entries)
	log.Info(ctx, "retrieved leaderboard", logger.Int("entries", len(entries)))

	if len(entries) > cfg.TopN {
		return fmt.Errorf("%w: asked for %d entries, got %d", ErrVerification, cfg.TopN, len(entries))
	}
	if i := checkOrder(entries); i > 0 {
		return fmt.Errorf("%w: entry %d (%s) ranks above entry %d (%s)",
			ErrVerification, i, entries[i].Name, i-1, entries[i-1].Name)
	}
	for _, e := range entries {
		if want, ok := expected[e.Name]; ok && e.Best != want {
			return fmt.Errorf("%w: leaderboard best for %s is %d, want %d", ErrVerification, e.Name, e.Best, want)
		}
	}

	for i, e := range entries {
		if i >= maxReported {
			break
		}
		log.Debug(ctx, "leaderboard entry", logger.Int("rank", i+1), logger.String("name", e.Name), logger.Int64("best", e.Best))
	}
	return nil
}

// checkOrder returns the index of the first entry that should rank above its
// predecessor, or 0 when the slice is correctly ordered.
func checkOrder(entries []Entry) int {
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		switch {
		case cur.Best != prev.Best:
			if cur.Best > prev.Best {
				return i
			}
		case !cur.UpdatedAt.Equal(prev.UpdatedAt):
			if cur.UpdatedAt.After(prev.UpdatedAt) {
				return i
			}
		case cur.Name < prev.Name:
			return i
		}
	}
	return 0
}
