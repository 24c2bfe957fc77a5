package transaction

// Request limits
const (
	MaxDescriptionLength = 255
	AmountPlaces         = 2
)

// History paging
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Metadata keys written on every transaction
const (
	MetadataRiskReason = "risk_reason"
)

const tracerName = "fraudguard/services/transaction"
