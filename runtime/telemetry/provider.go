// Package telemetry exports interview sessions as OpenTelemetry traces.
// Setup wires an OTLP/HTTP exporter from the client configuration and returns
// the listener that turns bus events into spans.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/candorlabs/liveinterview/pkg/config"
	"github.com/candorlabs/liveinterview/runtime/version"
)

// InstrumentationName is the OTel instrumentation scope name.
const InstrumentationName = "github.com/candorlabs/liveinterview"

// DefaultServiceName is reported when the configuration leaves it empty.
const DefaultServiceName = "liveinterview"

// Tracer returns the client tracer from tp, or from the global provider when
// tp is nil. The scope version is the build version.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(version.Get()))
}

// NewResource describes this client process: service name, build version and
// commit, host and Go runtime. OTEL_RESOURCE_ATTRIBUTES is honored.
func NewResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	attrs := []attribute.KeyValue{
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version.Get()),
	}
	if c := version.Commit(); c != "" {
		attrs = append(attrs, attribute.String("vcs.ref.head.revision", c))
	}
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithAttributes(attrs...),
	)
}

// NewTracerProvider batches spans from the client resource into exporter.
func NewTracerProvider(res *resource.Resource, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
}

// Tracing is an installed trace pipeline.
type Tracing struct {
	Provider *sdktrace.TracerProvider
	Listener *OTelEventListener
}

// Setup installs tracing for cfg as the global provider and propagator.
// An empty endpoint disables tracing: Setup returns nil, nil.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Tracing, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}
	res, err := NewResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	tp := NewTracerProvider(res, exporter)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Tracing{Provider: tp, Listener: NewOTelEventListener(Tracer(tp))}, nil
}

// Shutdown flushes pending spans. Safe on a nil Tracing.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.Provider.Shutdown(ctx)
}
