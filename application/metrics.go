package application

import (
	"time"

	"happyfool/domain/interfaces"
)

// noopMetrics is used when no recorder is wired
type noopMetrics struct{}

func (noopMetrics) RecordEventReceived(string)           {}
func (noopMetrics) RecordDispatch(string, string)        {}
func (noopMetrics) RecordLedgerTransaction(string)       {}
func (noopMetrics) RecordMutation(string, time.Duration) {}

func metricsOrNoop(m interfaces.MetricsRecorder) interfaces.MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
