package observability

// Metric name prefixes
const (
	MetricPrefix = "happyfool"
)

// Metric names
const (
	// Event intake metrics
	EventsReceivedTotal = MetricPrefix + ".events.received_total"

	// Dispatch metrics
	DispatchTotal = MetricPrefix + ".dispatch.total"

	// Ledger metrics
	LedgerTransactionsTotal = MetricPrefix + ".ledger.transactions_total"
	LedgerMutationDuration  = MetricPrefix + ".ledger.mutation_duration"
)

// Label keys
const (
	LabelOutcome = "outcome"
	LabelKind    = "kind"
	LabelReason  = "reason"
)
