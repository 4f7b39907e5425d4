// Package logger builds the process zap logger and derives request-scoped
// child loggers carrying org, actor and trace identifiers.
package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	obscontext "github.com/smallbiznis/tradieapp/internal/observability/context"
	"github.com/smallbiznis/tradieapp/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Per second, the first samplingFirst entries with the same message are kept
// and then one in every samplingThereafter.
const (
	samplingTick       = time.Second
	samplingFirst      = 100
	samplingThereafter = 100
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string

	Caller       bool
	StackOnError bool
}

func (c Config) zapConfig() (zap.Config, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "json"
	if strings.EqualFold(strings.TrimSpace(c.Format), "console") {
		zc.Encoding = "console"
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}
	// Sampling is applied by the core wrapper in New.
	zc.Sampling = nil

	level := strings.TrimSpace(c.Level)
	if level == "" {
		level = "info"
	}
	if err := zc.Level.UnmarshalText([]byte(level)); err != nil {
		return zc, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zc, nil
}

// New builds the logger, installs it as the zap global and flushes it on stop.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	zc, err := cfg.zapConfig()
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(core, samplingTick, samplingFirst, samplingThereafter)
		}),
	}
	if cfg.Caller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.StackOnError {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	base, err := zc.Build(opts...)
	if err != nil {
		return nil, err
	}

	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "tradieapp"
	}
	log := base.With(
		zap.String("service", service),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(log)

	if lc != nil {
		lc.Append(fx.StopHook(func() {
			_ = log.Sync()
		}))
	}
	return log, nil
}

// FromContext is WithContext on the global logger.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext tags base with the request, org, actor, correlation and trace
// identifiers found in ctx. Missing identifiers are logged as empty strings so
// every line has the same shape.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}

	actorType, actorID := obscontext.ActorFromContext(ctx)
	fields := make([]zap.Field, 0, 7)
	fields = append(fields,
		zap.String("request_id", obscontext.RequestIDFromContext(ctx)),
		zap.String("org_id", obscontext.OrgIDFromContext(ctx)),
		zap.String("actor_type", actorType),
		zap.String("actor_id", actorID),
	)
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		fields = append(fields, zap.String("correlation_id", cid))
	}

	var traceID, spanID string
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID, spanID = sc.TraceID().String(), sc.SpanID().String()
	}
	fields = append(fields, zap.String("trace_id", traceID), zap.String("span_id", spanID))

	return base.With(fields...)
}
