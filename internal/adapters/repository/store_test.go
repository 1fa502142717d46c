package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/hiscore/internal/domain/types"
)

var t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

// backends opens every store that runs without external services.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlite, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stores := map[string]Store{
		BackendMemory: NewTreapStore(),
		BackendSQLite: sqlite,
	}
	for name, s := range stores {
		if err := s.Init(ctx); err != nil {
			t.Fatalf("%s: init: %v", name, err)
		}
		t.Cleanup(func() { _ = s.Close() })
	}
	return stores
}

func runContract(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func TestStore_MergeKeepsMaximum(t *testing.T) {
	runContract(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		steps := []struct {
			score        int64
			at           time.Time
			wantBest     int64
			wantImproved bool
		}{
			{100, t0, 100, true},
			{40, t0.Add(time.Minute), 100, false},
			{250, t0.Add(2 * time.Minute), 250, true},
			{250, t0.Add(3 * time.Minute), 250, false},
		}
		for i, step := range steps {
			rec, improved, err := s.Merge(ctx, "Ada", step.score, step.at)
			if err != nil {
				t.Fatalf("step %d: unexpected error: %v", i, err)
			}
			if improved != step.wantImproved {
				t.Errorf("step %d: improved = %v, want %v", i, improved, step.wantImproved)
			}
			want := types.Record{Name: "Ada", Best: step.wantBest, UpdatedAt: step.at}
			if diff := cmp.Diff(want, rec); diff != "" {
				t.Errorf("step %d: merge result mismatch (-want +got):\n%s", i, diff)
			}
		}

		got, err := s.Get(ctx, "Ada")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := types.Record{Name: "Ada", Best: 250, UpdatedAt: t0.Add(3 * time.Minute)}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("stored row mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestStore_LowerScoreStillRefreshesTimestamp(t *testing.T) {
	runContract(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, _, err := s.Merge(ctx, "Bob", 500, t0); err != nil {
			t.Fatal(err)
		}
		later := t0.Add(time.Hour)
		rec, _, err := s.Merge(ctx, "Bob", 1, later)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Best != 500 {
			t.Errorf("expected best 500, got %d", rec.Best)
		}
		if !rec.UpdatedAt.Equal(later) {
			t.Errorf("expected updated_at %v, got %v", later, rec.UpdatedAt)
		}
	})
}

func TestStore_GetUnknown(t *testing.T) {
	runContract(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "nobody")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_TopNOrdering(t *testing.T) {
	runContract(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rows := []types.Record{
			{Name: "low", Best: 10, UpdatedAt: t0.Add(5 * time.Minute)},
			{Name: "b", Best: 50, UpdatedAt: t0},
			{Name: "a", Best: 50, UpdatedAt: t0},
			{Name: "newer", Best: 50, UpdatedAt: t0.Add(time.Minute)},
			{Name: "top", Best: 90, UpdatedAt: t0},
		}
		for _, r := range rows {
			if _, _, err := s.Merge(ctx, r.Name, r.Best, r.UpdatedAt); err != nil {
				t.Fatalf("merge %s: %v", r.Name, err)
			}
		}

		got, err := s.TopN(ctx, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names := make([]string, len(got))
		for i, r := range got {
			names[i] = r.Name
		}
		want := []string{"top", "newer", "a", "b", "low"}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}

		got, err = s.TopN(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].Name != "top" || got[1].Name != "newer" {
			t.Errorf("unexpected top 2: %+v", got)
		}

		n, err := s.Count(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != len(rows) {
			t.Errorf("expected count %d, got %d", len(rows), n)
		}
	})
}

func TestStore_EmptyAndInvalidLimit(t *testing.T) {
	runContract(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		got, err := s.TopN(ctx, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty board, got %+v", got)
		}
		if _, err := s.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("expected ErrInvalidLimit, got %v", err)
		}
	})
}

func TestStore_InitIsIdempotent(t *testing.T) {
	runContract(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, _, err := s.Merge(ctx, "keep", 7, t0); err != nil {
			t.Fatal(err)
		}
		if err := s.Init(ctx); err != nil {
			t.Fatalf("second init: %v", err)
		}
		rec, err := s.Get(ctx, "keep")
		if err != nil || rec.Best != 7 {
			t.Errorf("row lost after re-init: %+v, %v", rec, err)
		}
	})
}

func TestStore_ConcurrentMerges(t *testing.T) {
	runContract(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const (
			players = 8
			perUser = 25
		)

		var wg sync.WaitGroup
		errCh := make(chan error, players*perUser)
		for p := range players {
			for i := range perUser {
				wg.Add(1)
				go func() {
					defer wg.Done()
					name := fmt.Sprintf("player%d", p)
					score := int64((i*37)%perUser) * 10
					if _, _, err := s.Merge(ctx, name, score, t0.Add(time.Duration(i)*time.Millisecond)); err != nil {
						errCh <- err
					}
				}()
			}
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			t.Fatalf("unexpected error: %v", err)
		}

		for p := range players {
			rec, err := s.Get(ctx, fmt.Sprintf("player%d", p))
			if err != nil {
				t.Fatal(err)
			}
			if want := int64(perUser-1) * 10; rec.Best != want {
				t.Errorf("player%d: expected best %d, got %d", p, want, rec.Best)
			}
		}
		if n, _ := s.Count(ctx); n != players {
			t.Errorf("expected %d players, got %d", players, n)
		}
	})
}
