package network

import (
	"time"

	"fraudguard/internal/models"

	"github.com/shopspring/decimal"
)

// Frequency buckets an edge by how many transactions it carries.
type Frequency string

const (
	FrequencyLow    Frequency = "low"
	FrequencyMedium Frequency = "medium"
	FrequencyHigh   Frequency = "high"
)

// FrequencyFor maps a transaction count to its tier.
func FrequencyFor(count int) Frequency {
	switch {
	case count >= HighFrequencyCount:
		return FrequencyHigh
	case count >= MediumFrequencyCount:
		return FrequencyMedium
	default:
		return FrequencyLow
	}
}

// Node is a user in the counterparty graph.
type Node struct {
	ID               uint              `json:"id"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	TransactionCount int               `json:"transaction_count"`
	TotalSent        decimal.Decimal   `json:"total_sent"`
	TotalReceived    decimal.Decimal   `json:"total_received"`
	AvgRiskScore     float64           `json:"avg_risk_score"`
	HighRiskCount    int               `json:"high_risk_count"`
	KnownRecipients  []string          `json:"known_recipients"`
	CommonAmounts    []decimal.Decimal `json:"common_amounts"`
}

// EdgeTransaction is a transaction folded into an edge.
type EdgeTransaction struct {
	ID        uint                     `json:"id"`
	Reference string                   `json:"reference"`
	UserID    uint                     `json:"user_id"`
	Amount    decimal.Decimal          `json:"amount"`
	Type      models.TransactionType   `json:"type"`
	Status    models.TransactionStatus `json:"status"`
	RiskScore *float64                 `json:"risk_score"`
	Timestamp time.Time                `json:"timestamp"`
}

// Edge aggregates every transaction between two users regardless of who
// initiated it. Source is always the lower user ID.
//
// AvgAmount is TotalAmount / Count rounded half away from zero to cents,
// the scale amounts are stored at: 100 over 3 transactions averages 33.33.
// AvgRiskScore is rounded to two places as well.
type Edge struct {
	Key            string            `json:"key"`
	Source         uint              `json:"source"`
	Target         uint              `json:"target"`
	Count          int               `json:"count"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	AvgAmount      decimal.Decimal   `json:"avg_amount"`
	AvgRiskScore   float64           `json:"avg_risk_score"`
	Frequency      Frequency         `json:"frequency"`
	IsKnownPattern bool              `json:"is_known_pattern"`
	Transactions   []EdgeTransaction `json:"transactions"`
}

// Summary describes the whole graph.
type Summary struct {
	TotalNodes           int             `json:"total_nodes"`
	TotalEdges           int             `json:"total_edges"`
	TotalTransactions    int             `json:"total_transactions"`
	ResolvedTransactions int             `json:"resolved_transactions"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	AvgRiskScore         float64         `json:"avg_risk_score"`
	KnownPatternEdges    int             `json:"known_pattern_edges"`
	HighRiskTransactions int             `json:"high_risk_transactions"`
}

// Graph is the counterparty network. Nodes are ordered by ID and edges by
// (Source, Target).
type Graph struct {
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	Summary     Summary   `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`

	// Truncated is set when the transaction read hit its limit.
	Truncated bool `json:"truncated"`
}

// Window bounds a graph build over stored transactions.
type Window struct {
	Since *time.Time
	Until *time.Time
	Limit int
}
