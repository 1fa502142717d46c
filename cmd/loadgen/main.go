package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/hiscore/internal/loadgen"
	"github.com/okian/hiscore/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	cliApp := &cli.App{
		Name:  "loadgen",
		Usage: "submit generated scores to a leaderboard and verify the results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:3000", Usage: "base URL of the service"},
			&cli.IntFlag{Name: "players", Value: loadgen.DefaultPlayers, Usage: "distinct players to generate"},
			&cli.IntFlag{Name: "per-player", Value: loadgen.DefaultSubmissionsPerPlayer, Usage: "scores submitted per player"},
			&cli.IntFlag{Name: "top", Value: loadgen.DefaultTopN, Usage: "leaderboard entries to fetch and check"},
			&cli.IntFlag{Name: "workers", Value: loadgen.DefaultWorkers, Usage: "concurrent HTTP workers"},
			&cli.Float64Flag{Name: "rps", Usage: "submission rate limit, 0 for unlimited"},
			&cli.IntFlag{Name: "max-score", Value: loadgen.DefaultMaxScore, Usage: "upper bound for generated scores"},
			&cli.Uint64Flag{Name: "seed", Usage: "generator seed, 0 for random"},
			&cli.DurationFlag{Name: "timeout", Value: loadgen.DefaultTimeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "deadline", Value: defaultRunTimeout, Usage: "overall run deadline"},
			&cli.StringFlag{Name: "output", Usage: "write generated submissions to this JSON file"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		os.Stderr.WriteString("loadgen failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := logger.Init(); err != nil {
		return err
	}
	if c.Bool("verbose") {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.Duration("deadline"))
	defer cancel()

	_, err := loadgen.Run(ctx, loadgen.Config{
		BaseURL:              c.String("url"),
		Players:              c.Int("players"),
		SubmissionsPerPlayer: c.Int("per-player"),
		TopN:                 c.Int("top"),
		Workers:              c.Int("workers"),
		RPS:                  c.Float64("rps"),
		MaxScore:             c.Int("max-score"),
		Seed:                 c.Uint64("seed"),
		Timeout:              c.Duration("timeout"),
		OutputFile:           c.String("output"),
	})
	return err
}
