package network

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fraudguard/internal/config"
	apperrors "fraudguard/internal/errors"
	"fraudguard/internal/models"
	"fraudguard/internal/repositories"
	"fraudguard/internal/repositories/cache"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)

type fixture struct {
	store *repositories.MemoryStore
	cache *cache.MemoryCache
	svc   *Service
	users []models.User
	seq   int
}

func newFixture(t *testing.T, cfg config.GraphConfig) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store: repositories.NewMemoryStore(),
		cache: cache.NewMemoryCache(16, time.Minute),
	}
	for _, u := range []models.User{
		{Name: "Alice Doe", Email: "alice@example.com"},
		{Name: "Bob Smith", Email: "bob@example.com"},
	} {
		u := u
		require.NoError(t, f.store.Users().Create(ctx, &u))
		f.users = append(f.users, u)
	}

	f.svc = NewService(f.store, f.cache, NewBuilder(nil), cfg, nil)
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *fixture) add(t *testing.T, user uint, desc string, at time.Time) {
	t.Helper()
	f.seq++
	require.NoError(t, f.store.Transactions().Create(context.Background(), &models.Transaction{
		Reference:   fmt.Sprintf("ref-%03d", f.seq),
		UserID:      user,
		Amount:      decimal.NewFromInt(10000),
		Type:        models.TransactionTypeTransfer,
		Status:      models.StatusCompleted,
		Description: desc,
		Timestamp:   at,
	}))
}

func graphConfig() config.GraphConfig {
	return config.GraphConfig{
		MaxTransactions: 100,
		BuildTimeout:    time.Second,
		CacheTTL:        time.Minute,
		DefaultWindow:   24 * time.Hour,
	}
}

func TestBuildFromStore_DefaultWindow(t *testing.T) {
	f := newFixture(t, graphConfig())
	alice, bob := f.users[0].ID, f.users[1].ID

	f.add(t, alice, "Transfer to Bob Smith: old", now.Add(-48*time.Hour))
	f.add(t, alice, "Transfer to Bob Smith: lunch", now.Add(-time.Hour))
	f.add(t, bob, "Transfer to Alice Doe: change", now.Add(-time.Minute))

	g, err := f.svc.BuildFromStore(context.Background(), Window{})
	require.NoError(t, err)

	assert.Equal(t, 2, g.Summary.TotalTransactions, "history older than the window is skipped")
	assert.Equal(t, 2, g.Summary.TotalNodes)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 2, g.Edges[0].Count)
	assert.True(t, g.Edges[0].IsKnownPattern)
	assert.False(t, g.Truncated)
}

func TestBuildFromStore_ServesFromCache(t *testing.T) {
	f := newFixture(t, graphConfig())
	alice := f.users[0].ID
	ctx := context.Background()

	f.add(t, alice, "Transfer to Bob Smith: one", now.Add(-time.Hour))
	first, err := f.svc.BuildFromStore(ctx, Window{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Len())

	f.add(t, alice, "Transfer to Bob Smith: two", now.Add(-time.Minute))
	second, err := f.svc.BuildFromStore(ctx, Window{})
	require.NoError(t, err)
	assert.Equal(t, first.Summary.TotalTransactions, second.Summary.TotalTransactions)
	assert.True(t, first.Summary.TotalAmount.Equal(second.Summary.TotalAmount))

	// a different window misses the cache
	since := now.Add(-2 * time.Hour)
	third, err := f.svc.BuildFromStore(ctx, Window{Since: &since})
	require.NoError(t, err)
	assert.Equal(t, 2, third.Summary.TotalTransactions)
}

func TestBuildFromStore_WithoutCache(t *testing.T) {
	f := newFixture(t, graphConfig())
	f.svc.cache = nil
	alice := f.users[0].ID
	ctx := context.Background()

	f.add(t, alice, "Transfer to Bob Smith: one", now.Add(-time.Hour))
	_, err := f.svc.BuildFromStore(ctx, Window{})
	require.NoError(t, err)

	f.add(t, alice, "Transfer to Bob Smith: two", now.Add(-time.Minute))
	g, err := f.svc.BuildFromStore(ctx, Window{})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Summary.TotalTransactions)
}

func TestBuildFromStore_LimitIsClampedAndTruncates(t *testing.T) {
	cfg := graphConfig()
	cfg.MaxTransactions = 2
	f := newFixture(t, cfg)
	alice := f.users[0].ID

	f.add(t, alice, "Transfer to Bob Smith: a", now.Add(-3*time.Hour))
	f.add(t, alice, "Transfer to Bob Smith: b", now.Add(-2*time.Hour))
	f.add(t, alice, "Transfer to Bob Smith: c", now.Add(-time.Hour))

	g, err := f.svc.BuildFromStore(context.Background(), Window{Limit: 1000})
	require.NoError(t, err)
	assert.True(t, g.Truncated)
	assert.Equal(t, 2, g.Summary.TotalTransactions)

	refs := []string{g.Edges[0].Transactions[0].Reference, g.Edges[0].Transactions[1].Reference}
	assert.Equal(t, []string{"ref-002", "ref-003"}, refs, "the newest rows are kept")
}

func TestBuildFromStore_UntilIsExclusive(t *testing.T) {
	f := newFixture(t, graphConfig())
	alice := f.users[0].ID

	at := now.Add(-time.Hour)
	f.add(t, alice, "Transfer to Bob Smith: a", at.Add(-time.Minute))
	f.add(t, alice, "Transfer to Bob Smith: b", at)

	g, err := f.svc.BuildFromStore(context.Background(), Window{Until: &at})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Summary.TotalTransactions)
}

func TestBuildFromStore_RejectsInvertedWindow(t *testing.T) {
	f := newFixture(t, graphConfig())
	since := now.Add(-time.Hour)
	until := since

	_, err := f.svc.BuildFromStore(context.Background(), Window{Since: &since, Until: &until})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestBuildFromStore_Cancelled(t *testing.T) {
	f := newFixture(t, graphConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.BuildFromStore(ctx, Window{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrValidation)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(repositories.NewMemoryStore(), nil, nil, config.GraphConfig{}, nil)
	assert.Equal(t, DefaultMaxTransactions, svc.config.MaxTransactions)
	assert.Equal(t, DefaultBuildTimeout, svc.config.BuildTimeout)
	assert.Equal(t, DefaultWindow, svc.config.DefaultWindow)

	assert.Panics(t, func() { NewService(nil, nil, nil, config.GraphConfig{}, nil) })
}

func TestCacheKey(t *testing.T) {
	since := time.Unix(1700000000, 0)
	until := since.Add(time.Hour)

	assert.Equal(t, "network:graph:window:1700000000:open:10", cacheKey(Window{Since: &since, Limit: 10}))
	assert.Equal(t, "network:graph:window:1700000000:1700003600:10", cacheKey(Window{Since: &since, Until: &until, Limit: 10}))
}
