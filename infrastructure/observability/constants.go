package observability

// Metric name prefixes
const (
	MetricPrefix = "tierledger"
)

// Metric names
const (
	// Request lifecycle
	RequestsProcessedTotal = MetricPrefix + ".requests.processed_total"

	// Ledger legs
	LedgerLegsTotal  = MetricPrefix + ".ledger.legs_total"
	LedgerLegAmount  = MetricPrefix + ".ledger.leg_amount"
	SettlementsTotal = MetricPrefix + ".settlements.total"

	// Provider callbacks
	RoundsSettledTotal = MetricPrefix + ".rounds.settled_total"

	// Accounts and messaging
	AccountsCreatedTotal   = MetricPrefix + ".accounts.created_total"
	MessageBroadcastsTotal = MetricPrefix + ".messages.broadcasts_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelKind            = "kind"
	LabelStatus          = "status"
	LabelWallet          = "wallet"
	LabelAction          = "action"
	LabelTransactionType = "transaction_type"
	LabelReplay          = "replay"
	LabelRole            = "role"
	LabelSubject         = "subject"
	LabelOutcome         = "outcome"
)

// Outcome values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDropped = "dropped"
)
