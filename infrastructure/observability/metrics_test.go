package observability

import (
	"context"
	"testing"

	"raffle/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.InitializeWithMeterProvider(provider))
	return mp, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestMetricsProvider_RecordsLotteryLifecycle(t *testing.T) {
	t.Parallel()

	mp, reader := newTestProvider(t)

	mp.RecordEntryAccepted()
	mp.RecordEntryAccepted()
	mp.RecordEntryAccepted()
	mp.RecordEntryRejected("insufficient_stake")
	mp.RecordDrawRequested()
	mp.RecordWinnerSelected(3)
	mp.RecordUpkeepCheck(true)
	mp.RecordUpkeepCheck(false)
	mp.RecordFulfillment(FulfillmentResultApplied)

	assert.Equal(t, int64(3), sumOf(t, reader, EntriesAcceptedTotal))
	assert.Equal(t, int64(1), sumOf(t, reader, EntriesRejectedTotal))
	assert.Equal(t, int64(0), sumOf(t, reader, CurrentPlayers))
	assert.Equal(t, int64(1), sumOf(t, reader, DrawsRequestedTotal))
	assert.Equal(t, int64(1), sumOf(t, reader, WinnersSelectedTotal))
	assert.Equal(t, int64(2), sumOf(t, reader, UpkeepChecksTotal))
	assert.Equal(t, int64(1), sumOf(t, reader, FulfillmentsReceivedTotal))
}

func TestMetricsProvider_NilAndDisabledAreNoops(t *testing.T) {
	t.Parallel()

	var nilProvider *MetricsProvider
	assert.NotPanics(t, func() {
		nilProvider.RecordEntryAccepted()
		nilProvider.RecordPayoutFailure()
		nilProvider.RecordWinnerSelected(2)
	})

	disabled := NewMetricsProvider(config.NewTestConfig())
	require.NoError(t, disabled.Initialize(context.Background()))
	assert.NotPanics(t, func() {
		disabled.RecordEntryAccepted()
		disabled.RecordUpkeepCheck(true)
	})
	assert.NoError(t, disabled.Shutdown(context.Background()))
}
