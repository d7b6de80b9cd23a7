package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"tierledger/config"
	"tierledger/events"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	recording     bool
	mu            sync.RWMutex

	requestsProcessedCounter metric.Int64Counter
	ledgerLegsCounter        metric.Int64Counter
	ledgerLegAmountHist      metric.Float64Histogram
	settlementsCounter       metric.Int64Counter
	roundsSettledCounter     metric.Int64Counter
	accountsCreatedCounter   metric.Int64Counter
	broadcastsCounter        metric.Int64Counter
	natsPublishedCounter     metric.Int64Counter
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

	if mp.config.OTelExporterType == "none" {
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil
	}

	res, err := newResource(mp.config)
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
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMS)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)

	return mp.start(mp.meterProvider.Meter("tierledger"))
}

// newResource describes this service on top of the SDK defaults. The service
// attributes carry no schema URL so the merge cannot conflict with the SDK's.
func newResource(cfg *config.Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.OTelServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
}

// InitializeWithReader wires the provider to a caller supplied reader
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return mp.start(mp.meterProvider.Meter("tierledger"))
}

// start must be called with mp.mu held
func (mp *MetricsProvider) start(meter metric.Meter) error {
	mp.meter = meter
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	mp.initialized = true
	mp.recording = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.requestsProcessedCounter, err = mp.meter.Int64Counter(
		RequestsProcessedTotal,
		metric.WithDescription("Total number of deposit, withdraw and bonus requests leaving pending"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create requests processed counter: %w", err)
	}

	mp.ledgerLegsCounter, err = mp.meter.Int64Counter(
		LedgerLegsTotal,
		metric.WithDescription("Total number of ledger legs written"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger legs counter: %w", err)
	}

	mp.ledgerLegAmountHist, err = mp.meter.Float64Histogram(
		LedgerLegAmount,
		metric.WithDescription("Amount moved by one ledger leg"),
		metric.WithUnit("{coin}"),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger leg amount histogram: %w", err)
	}

	mp.settlementsCounter, err = mp.meter.Int64Counter(
		SettlementsTotal,
		metric.WithDescription("Total number of master settlements"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlements counter: %w", err)
	}

	mp.roundsSettledCounter, err = mp.meter.Int64Counter(
		RoundsSettledTotal,
		metric.WithDescription("Total number of accepted provider callbacks"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rounds settled counter: %w", err)
	}

	mp.accountsCreatedCounter, err = mp.meter.Int64Counter(
		AccountsCreatedTotal,
		metric.WithDescription("Total number of accounts created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create accounts created counter: %w", err)
	}

	mp.broadcastsCounter, err = mp.meter.Int64Counter(
		MessageBroadcastsTotal,
		metric.WithDescription("Total number of real-time message broadcasts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create broadcasts counter: %w", err)
	}

	mp.natsPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.recording = false
	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Handle records one committed ledger event. It is subscribed to every event type.
func (mp *MetricsProvider) Handle(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.BalanceChangedEvent:
		attrs := metric.WithAttributes(
			attribute.String(LabelWallet, string(e.Wallet)),
			attribute.String(LabelAction, string(e.Action)),
			attribute.String(LabelTransactionType, string(e.TransactionType)),
		)
		mp.ledgerLegsCounter.Add(ctx, 1, attrs)
		mp.ledgerLegAmountHist.Record(ctx, e.Amount.InexactFloat64(), attrs)

	case events.RequestProcessedEvent:
		mp.requestsProcessedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelKind, string(e.Kind)),
			attribute.String(LabelStatus, string(e.Status)),
		))

	case events.SettlementCompletedEvent:
		mp.settlementsCounter.Add(ctx, 1)

	case events.RoundSettledEvent:
		mp.roundsSettledCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelReplay, strconv.FormatBool(e.Replay)),
		))

	case events.AccountCreatedEvent:
		mp.accountsCreatedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelRole, string(e.Role)),
		))
	}
}

// RecordBroadcast records the outcome of one message broadcast
func (mp *MetricsProvider) RecordBroadcast(ctx context.Context, outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.broadcastsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelOutcome, outcome),
	))
}

// RecordNATSPublish records a NATS message being published
func (mp *MetricsProvider) RecordNATSPublish(ctx context.Context, subject string, success bool) {
	if !mp.isEnabled() {
		return
	}

	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	mp.natsPublishedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelSubject, subject),
		attribute.String(LabelOutcome, outcome),
	))
}

// isEnabled checks if instruments exist and the provider is not shut down
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.recording
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

// GetMetrics returns the global metrics provider
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
