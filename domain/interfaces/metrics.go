package interfaces

import "time"

// MetricsRecorder receives counters from the event pipeline and the ledger
type MetricsRecorder interface {
	RecordEventReceived(outcome string)
	RecordDispatch(kind, outcome string)
	RecordLedgerTransaction(reason string)
	RecordMutation(outcome string, duration time.Duration)
}
