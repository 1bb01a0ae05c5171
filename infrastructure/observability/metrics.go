package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"raffle/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// MetricsProvider manages OpenTelemetry metrics for the lottery service.
// Every Record method is safe to call on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	entriesAcceptedCounter      metric.Int64Counter
	entriesRejectedCounter      metric.Int64Counter
	currentPlayersGauge         metric.Int64UpDownCounter
	drawsRequestedCounter       metric.Int64Counter
	winnersSelectedCounter      metric.Int64Counter
	payoutFailuresCounter       metric.Int64Counter
	upkeepChecksCounter         metric.Int64Counter
	fulfillmentsReceivedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)

	if err := mp.useMeter(mp.meterProvider.Meter("raffle")); err != nil {
		return err
	}

	log.Info("Metrics provider initialized successfully")
	return nil
}

// InitializeWithMeterProvider wires the provider to an existing meter
// provider, bypassing exporter setup. Used with a manual reader in tests.
func (mp *MetricsProvider) InitializeWithMeterProvider(provider metric.MeterProvider) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.useMeter(provider.Meter("raffle"))
}

func (mp *MetricsProvider) useMeter(meter metric.Meter) error {
	mp.meter = meter
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	mp.initialized = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.entriesAcceptedCounter, err = mp.meter.Int64Counter(
		EntriesAcceptedTotal,
		metric.WithDescription("Total number of accepted lottery entries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create entries accepted counter: %w", err)
	}

	mp.entriesRejectedCounter, err = mp.meter.Int64Counter(
		EntriesRejectedTotal,
		metric.WithDescription("Total number of rejected lottery entries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create entries rejected counter: %w", err)
	}

	// UpDownCounter for gauge-like behavior
	mp.currentPlayersGauge, err = mp.meter.Int64UpDownCounter(
		CurrentPlayers,
		metric.WithDescription("Number of entries in the current round"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create current players gauge: %w", err)
	}

	mp.drawsRequestedCounter, err = mp.meter.Int64Counter(
		DrawsRequestedTotal,
		metric.WithDescription("Total number of draws that requested randomness"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draws requested counter: %w", err)
	}

	mp.winnersSelectedCounter, err = mp.meter.Int64Counter(
		WinnersSelectedTotal,
		metric.WithDescription("Total number of completed draws"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create winners selected counter: %w", err)
	}

	mp.payoutFailuresCounter, err = mp.meter.Int64Counter(
		PayoutFailuresTotal,
		metric.WithDescription("Total number of draws aborted by a failed payout"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payout failures counter: %w", err)
	}

	mp.upkeepChecksCounter, err = mp.meter.Int64Counter(
		UpkeepChecksTotal,
		metric.WithDescription("Total number of upkeep checks"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create upkeep checks counter: %w", err)
	}

	mp.fulfillmentsReceivedCounter, err = mp.meter.Int64Counter(
		FulfillmentsReceivedTotal,
		metric.WithDescription("Total number of oracle fulfillments received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create fulfillments received counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordEntryAccepted records an accepted entry and grows the player gauge
func (mp *MetricsProvider) RecordEntryAccepted() {
	if !mp.isEnabled() {
		return
	}
	mp.entriesAcceptedCounter.Add(context.Background(), 1)
	mp.currentPlayersGauge.Add(context.Background(), 1)
}

// RecordEntryRejected records a rejected entry
func (mp *MetricsProvider) RecordEntryRejected(reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.entriesRejectedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// RecordDrawRequested records a draw that requested randomness
func (mp *MetricsProvider) RecordDrawRequested() {
	if !mp.isEnabled() {
		return
	}
	mp.drawsRequestedCounter.Add(context.Background(), 1)
}

// RecordWinnerSelected records a completed draw and resets the player gauge
func (mp *MetricsProvider) RecordWinnerSelected(playerCount int) {
	if !mp.isEnabled() {
		return
	}
	mp.winnersSelectedCounter.Add(context.Background(), 1)
	mp.currentPlayersGauge.Add(context.Background(), -int64(playerCount))
}

// RecordPayoutFailure records a draw resolution rolled back by a failed payout
func (mp *MetricsProvider) RecordPayoutFailure() {
	if !mp.isEnabled() {
		return
	}
	mp.payoutFailuresCounter.Add(context.Background(), 1)
}

// RecordUpkeepCheck records an upkeep check and its outcome
func (mp *MetricsProvider) RecordUpkeepCheck(ready bool) {
	if !mp.isEnabled() {
		return
	}
	mp.upkeepChecksCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool(LabelReady, ready)),
	)
}

// RecordFulfillment records an oracle fulfillment and how it was handled
func (mp *MetricsProvider) RecordFulfillment(result string) {
	if !mp.isEnabled() {
		return
	}
	mp.fulfillmentsReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelResult, result)),
	)
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
