package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fraudguard/internal/config"
	apperrors "fraudguard/internal/errors"
	"fraudguard/internal/repositories"
	"fraudguard/internal/repositories/cache"

	"go.uber.org/zap"
)

// Service builds graphs over stored history. It never takes account locks.
type Service struct {
	store   repositories.Store
	cache   cache.Store
	builder *Builder
	config  config.GraphConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a graph service. cache may be nil to disable caching.
func NewService(store repositories.Store, c cache.Store, builder *Builder, cfg config.GraphConfig, logger *zap.Logger) *Service {
	if store == nil {
		panic("store is required")
	}
	if builder == nil {
		builder = NewBuilder(nil)
	}
	if cfg.MaxTransactions <= 0 {
		cfg.MaxTransactions = DefaultMaxTransactions
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = DefaultBuildTimeout
	}
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		cache:   c,
		builder: builder,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// BuildFromStore reads a bounded window of history and builds its graph.
// Results are cached per window for the configured TTL.
func (s *Service) BuildFromStore(ctx context.Context, w Window) (*Graph, error) {
	w, err := s.normalize(w)
	if err != nil {
		return nil, err
	}

	key := cacheKey(w)
	if g, ok := s.cached(ctx, key); ok {
		return g, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.BuildTimeout)
	defer cancel()

	start := s.now()

	// one extra row tells us whether the window was cut short
	txns, err := s.store.Transactions().List(ctx, repositories.TransactionFilter{
		Since: w.Since,
		Until: w.Until,
		Limit: w.Limit + 1,
	})
	if err != nil {
		return nil, readError("list transactions", err)
	}
	truncated := len(txns) > w.Limit
	if truncated {
		txns = txns[:w.Limit]
	}

	users, err := s.store.Users().List(ctx, 0)
	if err != nil {
		return nil, readError("list users", err)
	}

	g, err := s.builder.Build(ctx, users, txns)
	if err != nil {
		return nil, fmt.Errorf("build network graph: %w", err)
	}
	g.Truncated = truncated

	s.logger.Info("network graph built",
		zap.Int("nodes", g.Summary.TotalNodes),
		zap.Int("edges", g.Summary.TotalEdges),
		zap.Int("transactions", g.Summary.TotalTransactions),
		zap.Bool("truncated", truncated),
		zap.Duration("took", s.now().Sub(start)))

	if truncated {
		s.logger.Warn("network graph window truncated", zap.Int("limit", w.Limit))
	}

	s.remember(ctx, key, g)
	return g, nil
}

func (s *Service) normalize(w Window) (Window, error) {
	if w.Limit <= 0 || w.Limit > s.config.MaxTransactions {
		w.Limit = s.config.MaxTransactions
	}
	if w.Since == nil {
		since := s.now().Add(-s.config.DefaultWindow).Truncate(time.Minute).UTC()
		w.Since = &since
	}
	if w.Until != nil && !w.Until.After(*w.Since) {
		return Window{}, apperrors.NewValidationError("until", "must be after since")
	}
	return w, nil
}

func (s *Service) cached(ctx context.Context, key string) (*Graph, bool) {
	if s.cache == nil {
		return nil, false
	}
	var g Graph
	found, err := cache.GetJSON(ctx, s.cache, key, &g)
	if err != nil {
		s.logger.Warn("network graph cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &g, true
}

func (s *Service) remember(ctx context.Context, key string, g *Graph) {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, g, s.config.CacheTTL); err != nil {
		s.logger.Warn("network graph cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(w Window) string {
	until := "open"
	if w.Until != nil {
		until = fmt.Sprint(w.Until.UTC().Unix())
	}
	return cache.GenerateKey(cachePrefix, "window", fmt.Sprintf("%d:%s:%d", w.Since.UTC().Unix(), until, w.Limit))
}

// readError keeps deadline and cancellation errors matchable and wraps the
// rest as retryable storage failures.
func readError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperrors.NewPersistenceError(op, err)
}
