package observability

import (
	"github.com/smallbiznis/tradieapp/internal/observability/logger"
	"github.com/smallbiznis/tradieapp/internal/observability/metrics"
	"github.com/smallbiznis/tradieapp/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires the zap logger plus the OTLP tracer and meter providers. Both
// binaries include it.
var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(
		func(cfg Config) logger.Config {
			return logger.Config{
				ServiceName:  cfg.ServiceName,
				Environment:  cfg.Environment,
				Version:      cfg.Version,
				Level:        cfg.LogLevel,
				Format:       cfg.LogFormat,
				Caller:       true,
				StackOnError: cfg.Debug(),
			}
		},
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.Telemetry.Enabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.Telemetry.Endpoint,
				ExporterProtocol: cfg.Telemetry.Protocol,
				SamplingRatio:    cfg.Telemetry.SamplingRatio,
			}
		},
		func(cfg Config) metrics.Config {
			return metrics.Config{
				Enabled:          cfg.Telemetry.Enabled,
				ExporterEndpoint: cfg.Telemetry.Endpoint,
				ExporterProtocol: cfg.Telemetry.Protocol,
				ServiceName:      cfg.ServiceName,
				Environment:      cfg.Environment,
			}
		},
	),
	fx.Provide(
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// The tracer provider registers itself globally; force its construction.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
