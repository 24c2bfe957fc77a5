package network

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ProfileHistoryLimit is how many of a user's most recent transactions
	// feed their profile.
	ProfileHistoryLimit = 50
	CommonAmountCount   = 5

	HighFrequencyCount   = 10
	MediumFrequencyCount = 5

	// HighRiskScore is exclusive: a score must exceed it to count.
	HighRiskScore = 70.0

	// ctx is polled every ctxCheckInterval transactions.
	ctxCheckInterval = 256

	cachePrefix = "network:graph"
)

var amountBucket = decimal.NewFromInt(1000)

// Fallbacks for a zero GraphConfig.
const (
	DefaultMaxTransactions = 50000
	DefaultBuildTimeout    = 30 * time.Second
	DefaultWindow          = 30 * 24 * time.Hour
)
