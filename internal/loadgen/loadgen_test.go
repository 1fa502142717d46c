package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hiscore/internal/adapters/http/api"
	app "github.com/okian/hiscore/internal/app"
	"github.com/okian/hiscore/pkg/logger"
)

func newLeaderboardServer(ctx context.Context) (*httptest.Server, func()) {
	svc := app.New()
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	srv := httptest.NewServer(api.NewServer(svc).Router(ctx))
	return srv, func() {
		srv.Close()
		svc.Stop()
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := Config{Players: 40, SubmissionsPerPlayer: 3, MaxScore: 1000, Seed: 7}.withDefaults()
		plan := generate(cfg, "0f1e2d3c-aaaa-bbbb-cccc-ddddeeeeffff")

		Convey("Then every player gets the configured number of scores", func() {
			So(len(plan.Submissions), ShouldEqual, 120)
			So(len(plan.Expected), ShouldEqual, 40)

			perName := map[string]int{}
			for _, s := range plan.Submissions {
				perName[s.Name]++
			}
			for _, n := range perName {
				So(n, ShouldEqual, 3)
			}
		})

		Convey("Then the expected best is the highest score sent", func() {
			maxes := map[string]int64{}
			for _, s := range plan.Submissions {
				if s.Score > maxes[s.Name] {
					maxes[s.Name] = s.Score
				}
				So(s.Score, ShouldBeBetweenOrEqual, 0, 1000)
			}
			for name, best := range plan.Expected {
				So(best, ShouldEqual, maxes[name])
			}
		})

		Convey("Then names fit the stored length and carry the run prefix", func() {
			for name := range plan.Expected {
				So(utf8.RuneCountInString(name), ShouldBeLessThanOrEqualTo, maxNameRunes)
				So(name, ShouldStartWith, "0f1e2d-")
			}
		})

		Convey("Then the same seed yields the same plan", func() {
			again := generate(cfg, "0f1e2d3c-aaaa-bbbb-cccc-ddddeeeeffff")
			So(again.Submissions, ShouldResemble, plan.Submissions)
		})
	})
}

func TestPlayerName(t *testing.T) {
	Convey("Given long first names", t, func() {
		So(playerName("abcdef", 7, "Ada"), ShouldEqual, "abcdef-7-Ada")
		So(playerName("abcdef", 12, "Bartholomew Maximilian"), ShouldEqual, "abcdef-12-BartholomewMax")
		So(playerName("abcdef", 123456789012, "Zoë"), ShouldEqual, "abcdef-123456789012-Zoë")
		So(playerName("abcdef", 12345678901234567, "X"), ShouldEqual, "abcdef-12345678901234567")
	})
}

func TestCheckOrder(t *testing.T) {
	Convey("Given leaderboard slices", t, func() {
		t0 := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
		t1 := t0.Add(time.Second)

		So(checkOrder(nil), ShouldEqual, 0)
		So(checkOrder([]Entry{
			{Name: "a", Best: 9, UpdatedAt: t0},
			{Name: "b", Best: 5, UpdatedAt: t1},
			{Name: "c", Best: 5, UpdatedAt: t0},
			{Name: "d", Best: 5, UpdatedAt: t0},
		}), ShouldEqual, 0)

		So(checkOrder([]Entry{{Name: "a", Best: 1}, {Name: "b", Best: 2}}), ShouldEqual, 1)
		So(checkOrder([]Entry{
			{Name: "a", Best: 5, UpdatedAt: t0},
			{Name: "b", Best: 5, UpdatedAt: t1},
		}), ShouldEqual, 1)
		So(checkOrder([]Entry{
			{Name: "a", Best: 5, UpdatedAt: t0},
			{Name: "c", Best: 5, UpdatedAt: t0},
			{Name: "b", Best: 5, UpdatedAt: t0},
		}), ShouldEqual, 2)
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running leaderboard", t, func() {
		ctx := context.Background()
		So(logger.Init(logger.WithOutput(io.Discard)), ShouldBeNil)

		srv, cleanup := newLeaderboardServer(ctx)
		defer cleanup()

		Convey("When a load run completes", func() {
			stats, err := Run(ctx, Config{
				BaseURL:              srv.URL,
				Players:              30,
				SubmissionsPerPlayer: 4,
				TopN:                 10,
				Workers:              8,
				Seed:                 42,
			})

			Convey("Then every submission is accepted and verified", func() {
				So(err, ShouldBeNil)
				So(stats.RunID, ShouldNotBeEmpty)
				So(stats.Submitted, ShouldEqual, 120)
				So(stats.Accepted, ShouldEqual, 120)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.BestChecked, ShouldEqual, 30)
				So(stats.BestMismatches, ShouldEqual, 0)
				So(stats.LeaderboardEntries, ShouldEqual, 10)
				So(stats.Duration, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When submissions are paced and dumped to a file", func() {
			out := filepath.Join(t.TempDir(), "runs", "subs.json")
			_, err := Run(ctx, Config{
				BaseURL:              srv.URL,
				Players:              5,
				SubmissionsPerPlayer: 2,
				Workers:              2,
				RPS:                  500,
				Seed:                 3,
				OutputFile:           out,
			})
			So(err, ShouldBeNil)

			raw, readErr := os.ReadFile(out)
			So(readErr, ShouldBeNil)
			var subs []Submission
			So(json.Unmarshal(raw, &subs), ShouldBeNil)
			So(len(subs), ShouldEqual, 10)
		})
	})
}

func TestRunDetectsBrokenServers(t *testing.T) {
	Convey("Given servers that misbehave", t, func() {
		ctx := context.Background()
		So(logger.Init(logger.WithOutput(io.Discard)), ShouldBeNil)

		Convey("When bests are never stored", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"ok":true}`))
			})
			mux.HandleFunc("/score", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"name":"x","best":0,"updated_at":"2026-10-19T12:00:00Z"}`))
			})
			mux.HandleFunc("/best", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"item":null}`))
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			stats, err := Run(ctx, Config{BaseURL: srv.URL, Players: 3, SubmissionsPerPlayer: 1, Workers: 2})

			So(errors.Is(err, ErrVerification), ShouldBeTrue)
			So(stats.BestMismatches, ShouldEqual, 3)
		})

		Convey("When every submission fails", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"ok":true}`))
			})
			mux.HandleFunc("/score", func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			stats, err := Run(ctx, Config{BaseURL: srv.URL, Players: 2, SubmissionsPerPlayer: 2, Workers: 2})

			So(errors.Is(err, ErrVerification), ShouldBeTrue)
			So(stats.Failed, ShouldEqual, 4)
			So(stats.Accepted, ShouldEqual, 0)
		})

		Convey("When the service is unreachable", func() {
			srv := httptest.NewServer(http.NotFoundHandler())
			srv.Close()

			_, err := Run(ctx, Config{BaseURL: srv.URL, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}
