// Package tracing installs the OpenTelemetry tracer provider and propagator.
package tracing

import (
	"context"

	"github.com/ghaggin/courseweb/internal/config"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Log       *zap.Logger
}

// New builds the provider, makes it and the W3C propagators global, and
// flushes pending spans when the app stops.
func New(p Params) (*sdktrace.TracerProvider, error) {
	tp, err := NewProvider(context.Background(), p.Config.Tracing)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if p.Config.Tracing.Endpoint == "" {
		p.Log.Info("tracing enabled without exporter")
	} else {
		p.Log.Info("exporting traces", zap.String("endpoint", p.Config.Tracing.Endpoint))
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: tp.Shutdown,
	})
	return tp, nil
}

// NewProvider returns a tracer provider that batches spans to the OTLP/HTTP
// endpoint in cfg, or keeps them local when no endpoint is set.
func NewProvider(ctx context.Context, cfg config.Tracing) (*sdktrace.TracerProvider, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	)

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		if err != nil {
			return nil, errors.Wrap(err, "creating otlp trace exporter")
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}
