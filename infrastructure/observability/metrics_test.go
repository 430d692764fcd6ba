package observability

import (
	"context"
	"testing"
	"time"

	"happyfool/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_Records(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelServiceName = "happyfool-test"

	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.InitializeWithReader(reader))
	defer mp.Shutdown(context.Background())

	mp.RecordEventReceived("accepted")
	mp.RecordEventReceived("dropped")
	mp.RecordDispatch("game", "ok")
	mp.RecordLedgerTransaction("gamble_stake")
	mp.RecordMutation("applied", 3*time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data[EventsReceivedTotal]))
	assert.Equal(t, int64(1), sumOf(t, data[DispatchTotal]))
	assert.Equal(t, int64(1), sumOf(t, data[LedgerTransactionsTotal]))

	hist, ok := data[LedgerMutationDuration].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))

	assert.NotPanics(t, func() {
		mp.RecordEventReceived("accepted")
		mp.RecordDispatch("system", "ok")
		mp.RecordLedgerTransaction("accrual")
		mp.RecordMutation("applied", time.Millisecond)
	})
	assert.NoError(t, mp.Shutdown(context.Background()))
}
