package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exportInterval = 10 * time.Second

type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// NewProvider installs the global meter provider. With telemetry disabled it
// is a no-op provider and every counter below costs nothing.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(provider.Shutdown))
	}
	log.Info("metrics exporter started",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Metrics holds the domain counters. A nil *Metrics is valid and records
// nothing, so services take it as an optional dependency.
type Metrics struct {
	authAttempts     metric.Int64Counter
	quoteEvents      metric.Int64Counter
	paymentEvents    metric.Int64Counter
	invoiceStatus    metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
	schedulerJobs    metric.Int64Counter
}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tradieapp"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.authAttempts, "tradieapp_auth_attempts_total", "Sign-in attempts by strategy and result."},
		{&m.quoteEvents, "tradieapp_quote_events_total", "Quote lifecycle transitions by event and result."},
		{&m.paymentEvents, "tradieapp_payment_events_total", "Payments recorded and deleted."},
		{&m.invoiceStatus, "tradieapp_invoice_status_changes_total", "Invoice status changes by resulting status."},
		{&m.rateLimitAllowed, "tradieapp_rate_limit_allowed_total", "Requests admitted by the rate limiter."},
		{&m.rateLimitDenied, "tradieapp_rate_limit_denied_total", "Requests refused by the rate limiter."},
		{&m.schedulerJobs, "tradieapp_scheduler_jobs_total", "Sweeper job runs by outcome."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func (m *Metrics) add(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	if m == nil || counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func label(key, value string) attribute.KeyValue {
	return attribute.String(key, strings.TrimSpace(value))
}

func (m *Metrics) RecordAuthAttempt(ctx context.Context, strategy, result string) {
	if m == nil {
		return
	}
	m.add(ctx, m.authAttempts, label("strategy", strategy), label("result", result))
}

// RecordQuoteEvent counts a quote transition; result is "ok" or the
// rejection code.
func (m *Metrics) RecordQuoteEvent(ctx context.Context, eventType, result string) {
	if m == nil {
		return
	}
	m.add(ctx, m.quoteEvents, label("event_type", eventType), label("result", result))
}

func (m *Metrics) RecordPaymentEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.add(ctx, m.paymentEvents, label("event_type", eventType))
}

func (m *Metrics) RecordInvoiceStatus(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.add(ctx, m.invoiceStatus, label("status", status))
}

func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.add(ctx, m.rateLimitAllowed, label("endpoint", endpoint))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	m.add(ctx, m.rateLimitDenied, label("endpoint", endpoint), label("reason", reason))
}

func (m *Metrics) RecordSchedulerJob(ctx context.Context, job, result string) {
	if m == nil {
		return
	}
	m.add(ctx, m.schedulerJobs, label("job", job), label("result", result))
}

// Label keys allowed on domain counters. Ids of orgs, quotes or invoices
// would explode cardinality and are dropped.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"strategy":    {},
	"result":      {},
	"status":      {},
	"event_type":  {},
	"reason":      {},
	"job":         {},
}

func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
