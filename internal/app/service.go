// Package service provides the leaderboard operations the HTTP API depends
// on: submitting a score, reading one player's best and reading the top of
// the board.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/hiscore/internal/adapters/repository"
	"github.com/okian/hiscore/internal/domain/scoring"
	"github.com/okian/hiscore/internal/domain/types"
	"github.com/okian/hiscore/pkg/logger"
	"github.com/okian/hiscore/pkg/metrics"
)

const tracerName = "github.com/okian/hiscore/internal/app"

// Stats describes the board for monitoring.
type Stats struct {
	Players int    `json:"players"`
	Backend string `json:"backend"`
	Started bool   `json:"started"`
}

// Service implements the API dependencies for the leaderboard. It keeps no
// per-request state; every call goes straight to the store.
type Service struct {
	mu      sync.RWMutex
	started bool

	store  repository.Store
	logger logger.Logger
	tracer trace.Tracer
	now    func() time.Time

	storeTimeout time.Duration
	defaultLimit int
	maxLimit     int
}

// New constructs a new Service with default configuration. Without
// WithStore it runs on an in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		now:          time.Now,
		storeTimeout: 5 * time.Second,
		defaultLimit: scoring.DefaultLimit,
		maxLimit:     scoring.MaxLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewTreapStore()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Start prepares the schema. A failure here must stop the process before it
// serves traffic.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting leaderboard service...", logger.String("backend", s.store.Backend()))

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.Init(ctx); err != nil {
		return fmt.Errorf("%w: init schema: %w", ErrStorage, err)
	}
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdatePlayersTotal(n)
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("backend", s.store.Backend()),
		logger.Int("defaultLimit", s.defaultLimit),
		logger.Int("maxLimit", s.maxLimit),
		logger.Duration("storeTimeout", s.storeTimeout),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// timestamp reads the clock at the precision every backend can store.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// storeFailure records a store error on the span and the log and wraps it
// so the transport reports it as db_error.
func (s *Service) storeFailure(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	s.logger.Error(ctx, "store operation failed", logger.String("op", op), logger.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Submit records a score for a player and returns the stored row. The stored
// best never decreases, and the update time always moves to this submission.
func (s *Service) Submit(ctx context.Context, rawName, rawScore any) (types.Record, error) {
	const op = "service.submit"

	name := scoring.NormalizeName(rawName)
	if name == "" {
		metrics.RecordSubmission(metrics.ResultRejected)
		return types.Record{}, scoring.ErrNameRequired
	}
	score, err := scoring.CoerceScore(rawScore)
	if err != nil {
		metrics.RecordSubmission(metrics.ResultRejected)
		return types.Record{}, err
	}
	if err := s.ready(); err != nil {
		return types.Record{}, err
	}

	ctx, span := s.tracer.Start(ctx, "Service.Submit", trace.WithAttributes(
		attribute.String("player.name", name),
		attribute.Int64("player.score", score),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	rec, improved, err := s.store.Merge(ctx, name, score, s.timestamp())
	if err != nil {
		metrics.RecordSubmission(metrics.ResultFailed)
		return types.Record{}, s.storeFailure(ctx, span, op, err)
	}

	metrics.RecordSubmission(metrics.ResultAccepted)
	if improved {
		metrics.RecordBestImprovement()
	}
	span.SetAttributes(attribute.Int64("player.best", rec.Best))
	s.logger.Debug(ctx, "score accepted",
		logger.String("name", rec.Name),
		logger.Int64("score", score),
		logger.Int64("best", rec.Best),
	)
	return rec, nil
}

// Best returns one player's row, or nil when the player never submitted.
func (s *Service) Best(ctx context.Context, rawName any) (*types.Record, error) {
	const op = "service.best"

	name := scoring.NormalizeName(rawName)
	if name == "" {
		return nil, scoring.ErrNameRequired
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "Service.Best", trace.WithAttributes(attribute.String("player.name", name)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	rec, err := s.store.Get(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		span.SetAttributes(attribute.Bool("player.found", false))
		return nil, nil
	case err != nil:
		return nil, s.storeFailure(ctx, span, op, err)
	}
	span.SetAttributes(attribute.Bool("player.found", true))
	return &rec, nil
}

// Top returns the leaderboard head. limit is clamped to [1, max]; zero picks
// the default size.
func (s *Service) Top(ctx context.Context, limit int) ([]types.Record, error) {
	const op = "service.top"

	n := scoring.ClampLimit(limit, s.defaultLimit, s.maxLimit)
	if err := s.ready(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "Service.Top", trace.WithAttributes(
		attribute.Int("leaderboard.requested", limit),
		attribute.Int("leaderboard.limit", n),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	items, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, s.storeFailure(ctx, span, op, err)
	}
	span.SetAttributes(attribute.Int("leaderboard.returned", len(items)))
	return items, nil
}

// Stats returns service statistics for monitoring and refreshes the players
// gauge.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	const op = "service.stats"

	s.mu.RLock()
	st := Stats{Backend: s.store.Backend(), Started: s.started}
	s.mu.RUnlock()
	if !st.Started {
		return st, nil
	}

	ctx, span := s.tracer.Start(ctx, "Service.Stats")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	n, err := s.store.Count(ctx)
	if err != nil {
		return st, s.storeFailure(ctx, span, op, err)
	}
	st.Players = n
	metrics.UpdatePlayersTotal(n)
	return st, nil
}
