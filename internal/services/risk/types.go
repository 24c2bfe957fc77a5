package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "fraudguard/internal/errors"
	"fraudguard/internal/models"

	"github.com/shopspring/decimal"
)

// Disposition is the outcome of a risk decision.
type Disposition string

const (
	DispositionCompleted Disposition = Disposition(models.StatusCompleted)
	DispositionPending   Disposition = Disposition(models.StatusPending)
	DispositionFailed    Disposition = Disposition(models.StatusFailed)
)

// Status is the transaction status recorded for d.
func (d Disposition) Status() models.TransactionStatus {
	return models.TransactionStatus(d)
}

// Score is a risk score that may be absent. The zero value is unscored.
type Score struct {
	value  float64
	scored bool
}

// Scored wraps a score value.
func Scored(v float64) Score {
	return Score{value: v, scored: true}
}

// Unscored marks the absence of a score.
func Unscored() Score {
	return Score{}
}

// Value returns the score and whether one is present.
func (s Score) Value() (float64, bool) {
	return s.value, s.scored
}

// IsScored reports whether a score is present.
func (s Score) IsScored() bool {
	return s.scored
}

// Ptr returns the score for persistence, nil when unscored.
func (s Score) Ptr() *float64 {
	if !s.scored {
		return nil
	}
	v := s.value
	return &v
}

func (s Score) String() string {
	if !s.scored {
		return "unscored"
	}
	return fmt.Sprintf("%.2f", s.value)
}

// ValidateScore rejects NaN and values outside [0, 100].
func ValidateScore(v float64) error {
	if math.IsNaN(v) || v < MinScore || v > MaxScore {
		return apperrors.NewValidationError("risk_score", fmt.Sprintf("must be within [%v, %v]", MinScore, MaxScore))
	}
	return nil
}

// Policy holds the disposition thresholds.
type Policy struct {
	BlockThreshold  float64
	ReviewThreshold float64
}

func DefaultPolicy() Policy {
	return Policy{
		BlockThreshold:  BlockThreshold,
		ReviewThreshold: ReviewThreshold,
	}
}

// Validate checks that both thresholds are valid scores and ordered.
func (p Policy) Validate() error {
	if err := ValidateScore(p.BlockThreshold); err != nil {
		return fmt.Errorf("block threshold: %w", err)
	}
	if err := ValidateScore(p.ReviewThreshold); err != nil {
		return fmt.Errorf("review threshold: %w", err)
	}
	if p.ReviewThreshold > p.BlockThreshold {
		return apperrors.NewValidationError("review_threshold", "must not exceed block threshold")
	}
	return nil
}

// Decision is a disposition with the score and reason behind it.
type Decision struct {
	Disposition Disposition
	Score       Score
	Reason      string
}

// DebitCheck validates an EXPENSE debit against the balance floor.
type DebitCheck func(ctx context.Context) error

// ScoreRequest is what a Scorer sees of a transaction.
type ScoreRequest struct {
	UserID      uint                   `json:"user_id"`
	Amount      decimal.Decimal        `json:"amount"`
	Type        models.TransactionType `json:"type"`
	Description string                 `json:"description"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Scorer produces a risk score for a transaction. Implementations return
// Unscored when no score is available.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (Score, error)
}
