// Package risk maps risk scores to transaction dispositions and obtains
// scores from an external model.
package risk

import (
	"context"
	"errors"

	"fraudguard/internal/models"
)

// Engine applies a Policy. It is stateless and safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine validates policy and returns an engine for it.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy}, nil
}

// Policy returns the thresholds in force.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Classify maps a score in [0, 100] to a disposition:
// score >= block is FAILED, score >= review is PENDING, else COMPLETED.
func (e *Engine) Classify(score float64) (Disposition, error) {
	if err := ValidateScore(score); err != nil {
		return "", err
	}
	switch {
	case score >= e.policy.BlockThreshold:
		return DispositionFailed, nil
	case score >= e.policy.ReviewThreshold:
		return DispositionPending, nil
	default:
		return DispositionCompleted, nil
	}
}

// Decide classifies score. An unscored transaction is held for review.
func (e *Engine) Decide(score Score) (Decision, error) {
	v, ok := score.Value()
	if !ok {
		return Decision{Disposition: DispositionPending, Score: score, Reason: ReasonUnscored}, nil
	}

	d, err := e.Classify(v)
	if err != nil {
		return Decision{}, err
	}

	reason := ReasonApproved
	switch d {
	case DispositionFailed:
		reason = ReasonBlocked
	case DispositionPending:
		reason = ReasonReview
	}
	return Decision{Disposition: d, Score: score, Reason: reason}, nil
}

// Evaluate combines the risk decision with the balance floor. A blocked
// transaction is FAILED whatever the balance. Otherwise an EXPENSE must pass
// checkDebit; its error is returned unchanged. INCOME and TRANSFER are not
// floor-checked.
func (e *Engine) Evaluate(ctx context.Context, txType models.TransactionType, score Score, checkDebit DebitCheck) (Decision, error) {
	d, err := e.Decide(score)
	if err != nil {
		return Decision{}, err
	}
	if d.Disposition == DispositionFailed || txType != models.TransactionTypeExpense {
		return d, nil
	}

	if checkDebit == nil {
		return Decision{}, errors.New("risk: debit check required for EXPENSE")
	}
	if err := checkDebit(ctx); err != nil {
		return Decision{}, err
	}
	return d, nil
}
