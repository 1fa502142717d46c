package loadgen

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okian/hiscore/pkg/logger"
)

const progressInterval = time.Second

// submitAll sends every submission with at most cfg.Workers in flight. Failed
// requests are counted, not returned; only context cancellation aborts.
func submitAll(ctx context.Context, cfg Config, c *client, subs []Submission, stats *Stats) error {
	log := logger.Named("loadgen")
	log.Info(ctx, "submitting scores", logger.Int("submissions", len(subs)), logger.Int("workers", cfg.Workers))

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Workers)
	}

	var accepted, failed atomic.Int64
	var lastReport atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, sub := range subs {
		if limiter != nil {
			if err := limiter.Wait(gctx); err != nil {
				break
			}
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := c.submit(gctx, sub); err != nil {
				failed.Add(1)
				log.Debug(gctx, "submission failed", logger.String("name", sub.Name), logger.Error(err))
			} else {
				accepted.Add(1)
			}

			now := time.Now().UnixNano()
			last := lastReport.Load()
			if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
				log.Info(gctx, "progress",
					logger.Int64("accepted", accepted.Load()),
					logger.Int64("failed", failed.Load()),
					logger.Int("total", len(subs)))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Accepted = int(accepted.Load())
	stats.Failed = int(failed.Load())
	stats.Submitted = stats.Accepted + stats.Failed

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("failed", stats.Failed))
	return ctx.Err()
}
