package risk

// Default disposition thresholds. Both boundaries are closed on the high
// side: a score equal to a threshold takes the stricter disposition.
const (
	BlockThreshold  = 70.0
	ReviewThreshold = 30.0

	MinScore = 0.0
	MaxScore = 100.0
)

// Decision reasons recorded on the transaction.
const (
	ReasonApproved          = "auto_approved"
	ReasonReview            = "held_for_review"
	ReasonBlocked           = "auto_blocked"
	ReasonUnscored          = "unscored"
	ReasonScorerUnavailable = "scorer_unavailable"
)
