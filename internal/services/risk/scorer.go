package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// StaticScorer returns the same score for every request.
type StaticScorer struct {
	score Score
}

func NewStaticScorer(score Score) *StaticScorer {
	return &StaticScorer{score: score}
}

func (s *StaticScorer) Score(ctx context.Context, _ ScoreRequest) (Score, error) {
	if err := ctx.Err(); err != nil {
		return Unscored(), err
	}
	return s.score, nil
}

// ErrScorerUnavailable wraps every HTTPScorer failure.
var ErrScorerUnavailable = errors.New("risk scorer unavailable")

// HTTPScorerConfig configures the remote model client.
type HTTPScorerConfig struct {
	URL     string
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker; OpenTimeout is how long it
	// stays open before a probe.
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

type scoreResponse struct {
	Score *float64 `json:"score"`
}

// HTTPScorer POSTs the request as JSON to a model service and expects
// {"score": <0..100 or null>}. Calls go through a circuit breaker.
type HTTPScorer struct {
	url     string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewHTTPScorer(cfg HTTPScorerConfig, logger *zap.Logger) *HTTPScorer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &HTTPScorer{url: cfg.URL, timeout: cfg.Timeout, logger: logger}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "risk-scorer",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A caller giving up says nothing about the scorer's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

// Score returns Unscored with an error wrapping ErrScorerUnavailable when
// the service cannot be reached, answers badly, or the breaker is open.
func (s *HTTPScorer) Score(ctx context.Context, req ScoreRequest) (Score, error) {
	if err := ctx.Err(); err != nil {
		return Unscored(), err
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.call(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Debug("risk scorer short-circuited", zap.Error(err))
		}
		return Unscored(), fmt.Errorf("%w: %w", ErrScorerUnavailable, err)
	}
	return out.(Score), nil
}

// State exposes the breaker state for health reporting.
func (s *HTTPScorer) State() gobreaker.State {
	return s.breaker.State()
}

// HealthCheck fails while the breaker is open.
func (s *HTTPScorer) HealthCheck(context.Context) error {
	if state := s.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit %s", ErrScorerUnavailable, state)
	}
	return nil
}

type callResult struct {
	code int
	body []byte
	errs []error
}

// call bounds the request by the sooner of the configured timeout and the
// context deadline. The fasthttp agent cannot be cancelled, so a cancelled
// context returns at once and the response is dropped.
func (s *HTTPScorer) call(ctx context.Context, req ScoreRequest) (Score, error) {
	timeout, clamped := s.timeout, false
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Unscored(), context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout, clamped = remaining, true
		}
	}

	agent := fiber.Post(s.url).
		Timeout(timeout).
		JSON(req)

	done := make(chan callResult, 1)
	go func() {
		code, body, errs := agent.Bytes()
		done <- callResult{code: code, body: body, errs: errs}
	}()

	var res callResult
	select {
	case <-ctx.Done():
		return Unscored(), ctx.Err()
	case res = <-done:
	}

	if len(res.errs) > 0 {
		if err := ctx.Err(); err != nil {
			return Unscored(), err
		}
		if clamped && errors.Is(errors.Join(res.errs...), fasthttp.ErrTimeout) {
			return Unscored(), context.DeadlineExceeded
		}
		return Unscored(), errors.Join(res.errs...)
	}
	code, body := res.code, res.body
	if code != http.StatusOK {
		return Unscored(), fmt.Errorf("unexpected status %d", code)
	}

	var resp scoreResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Unscored(), fmt.Errorf("decode score: %w", err)
	}
	if resp.Score == nil {
		return Unscored(), nil
	}
	if err := ValidateScore(*resp.Score); err != nil {
		return Unscored(), fmt.Errorf("scorer returned %v: %w", *resp.Score, err)
	}
	return Scored(*resp.Score), nil
}
