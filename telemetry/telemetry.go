/*
telemetry.go - OpenTelemetry trace export

PURPOSE:
  Installs the global tracer provider that recordstore.WithTracing and the
  timeoff service report to. Spans are batched and sent over OTLP/gRPC.
  With tracing disabled nothing is installed and the global provider stays
  a no-op.

CONFIG (viper keys under tracing.*):
  enabled        false
  endpoint       localhost:4317
  insecure       plaintext gRPC (collectors on localhost)
  sample_rate    0.0 - 1.0
  service_name   leave-register
  batch_timeout  5s

SEE ALSO:
  - recordstore/tracing.go: blobstore.get / blobstore.put spans
  - timeoff/tracing.go: ledger.load / ledger.save spans
*/
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/leave-register/generic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// Config configures trace export.
type Config struct {
	Enabled      bool          `mapstructure:"enabled"`
	Endpoint     string        `mapstructure:"endpoint"`
	Insecure     bool          `mapstructure:"insecure"`
	SampleRate   float64       `mapstructure:"sample_rate"`
	ServiceName  string        `mapstructure:"service_name"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// DefaultConfig has export off.
func DefaultConfig() Config {
	return Config{
		Endpoint:     "localhost:4317",
		SampleRate:   1.0,
		ServiceName:  "leave-register",
		BatchTimeout: 5 * time.Second,
	}
}

// Validate checks the settings that matter when export is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("%w: tracing.endpoint is required", generic.ErrInvalidInput)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("%w: tracing.sample_rate must be between 0 and 1", generic.ErrInvalidInput)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("%w: tracing.service_name is required", generic.ErrInvalidInput)
	}
	return nil
}

// Shutdown flushes pending spans and stops export.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Setup installs the global tracer provider and propagator. The returned
// Shutdown must be called before the process exits.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (Shutdown, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("tracing disabled")
		return noop, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp, err := newProvider(cfg, exporter)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled",
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("sample_rate", cfg.SampleRate),
		zap.Bool("insecure", cfg.Insecure))
	return tp.Shutdown, nil
}

func newProvider(cfg Config, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = DefaultConfig().BatchTimeout
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	), nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}
