package risk

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"fraudguard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startScorer(t *testing.T, handler fiber.Handler) string {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/score", handler)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String() + "/score"
}

func scoreRequest() ScoreRequest {
	return ScoreRequest{
		UserID:      1,
		Amount:      decimal.NewFromInt(30000),
		Type:        models.TransactionTypeExpense,
		Description: "Transfer to Alice Doe: rent",
		Timestamp:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStaticScorer(t *testing.T) {
	s := NewStaticScorer(Scored(12))
	got, err := s.Score(context.Background(), scoreRequest())
	require.NoError(t, err)
	assert.Equal(t, Scored(12), got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Score(ctx, scoreRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPScorer_Responses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Score
		wantErr bool
	}{
		{"scored", fiber.StatusOK, `{"score": 45.5}`, Scored(45.5), false},
		{"null score", fiber.StatusOK, `{"score": null}`, Unscored(), false},
		{"out of range", fiber.StatusOK, `{"score": 140}`, Unscored(), true},
		{"server error", fiber.StatusInternalServerError, `{"error": "boom"}`, Unscored(), true},
		{"garbage", fiber.StatusOK, `not json`, Unscored(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := make(chan ScoreRequest, 1)
			url := startScorer(t, func(c *fiber.Ctx) error {
				var req ScoreRequest
				_ = c.BodyParser(&req)
				requests <- req
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(tt.status).SendString(tt.body)
			})

			s := NewHTTPScorer(HTTPScorerConfig{URL: url, Timeout: time.Second}, nil)
			got, err := s.Score(context.Background(), scoreRequest())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrScorerUnavailable)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)

			received := <-requests
			assert.Equal(t, uint(1), received.UserID)
			assert.Equal(t, models.TransactionTypeExpense, received.Type)
		})
	}
}

func TestHTTPScorer_BreakerOpens(t *testing.T) {
	var hits int32
	url := startScorer(t, func(c *fiber.Ctx) error {
		atomic.AddInt32(&hits, 1)
		return c.SendStatus(fiber.StatusServiceUnavailable)
	})

	s := NewHTTPScorer(HTTPScorerConfig{
		URL:                 url,
		Timeout:             time.Second,
		ConsecutiveFailures: 3,
		OpenTimeout:         time.Minute,
	}, nil)

	for i := 0; i < 5; i++ {
		got, err := s.Score(context.Background(), scoreRequest())
		assert.ErrorIs(t, err, ErrScorerUnavailable)
		assert.False(t, got.IsScored())
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "open breaker stops calling the service")
	assert.Equal(t, gobreaker.StateOpen, s.State())
}

func TestHTTPScorer_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := NewHTTPScorer(HTTPScorerConfig{URL: "http://" + addr + "/score", Timeout: 200 * time.Millisecond}, nil)
	got, err := s.Score(context.Background(), scoreRequest())
	assert.ErrorIs(t, err, ErrScorerUnavailable)
	assert.False(t, got.IsScored())
}

func TestHTTPScorer_HonoursContextDeadline(t *testing.T) {
	url := startScorer(t, func(c *fiber.Ctx) error {
		time.Sleep(time.Second)
		return c.JSON(fiber.Map{"score": 10})
	})
	s := NewHTTPScorer(HTTPScorerConfig{URL: url, Timeout: 10 * time.Second, ConsecutiveFailures: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	got, err := s.Score(ctx, scoreRequest())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrScorerUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, got.IsScored())
	assert.Less(t, elapsed, 900*time.Millisecond, "waited for the scorer timeout instead of the deadline")
	assert.Equal(t, gobreaker.StateClosed, s.State(), "caller deadline does not trip the breaker")
}

func TestHTTPScorer_ReturnsOnCancel(t *testing.T) {
	url := startScorer(t, func(c *fiber.Ctx) error {
		time.Sleep(time.Second)
		return c.JSON(fiber.Map{"score": 10})
	})
	s := NewHTTPScorer(HTTPScorerConfig{URL: url, Timeout: 10 * time.Second}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := s.Score(ctx, scoreRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestHTTPScorer_HealthCheck(t *testing.T) {
	url := startScorer(t, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusBadGateway)
	})
	s := NewHTTPScorer(HTTPScorerConfig{URL: url, Timeout: time.Second, ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)
	require.NoError(t, s.HealthCheck(context.Background()))

	for i := 0; i < 2; i++ {
		_, _ = s.Score(context.Background(), scoreRequest())
	}
	assert.ErrorIs(t, s.HealthCheck(context.Background()), ErrScorerUnavailable)
}
