package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/tbourn/merch-order-bot/internal/config"
)

func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	exp, res := newExporter, newResource
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
		newExporter, newResource = exp, res
	})
}

func enabled(name string) config.OTELConfig {
	return config.OTELConfig{Enabled: true, Insecure: true, Endpoint: "localhost:4317", ServiceName: name, SampleRatio: 1}
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "v0")
	if err != nil || shutdown == nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("disabled tracing must not replace the provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_ExportsSpansWithServiceResource(t *testing.T) {
	keepGlobals(t)
	mem := tracetest.NewInMemoryExporter()
	newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) { return mem, nil }

	shutdown, err := SetupOTel(context.Background(), enabled("orderbot-test"), "1.4.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}

	ctx, parent := otel.Tracer("bot/Dispatcher").Start(context.Background(), "update")
	_, child := otel.Tracer("services/OrderService").Start(ctx, "MarkReady")
	child.End()
	parent.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if carrier.Get("traceparent") == "" {
		t.Fatalf("trace context propagator not installed")
	}

	// Shutdown flushes the batcher; the in-memory exporter resets on
	// shutdown, so read the spans from a snapshot taken by ForceFlush.
	tp := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	spans := mem.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(spans))
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Fatalf("child span not linked to parent")
	}
	var svc string
	for _, kv := range spans[1].Resource.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			svc = kv.Value.AsString()
		}
	}
	if svc != "orderbot-test" {
		t.Fatalf("service.name = %q", svc)
	}

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupOTel_SamplerRatioZeroDropsRoots(t *testing.T) {
	keepGlobals(t)
	mem := tracetest.NewInMemoryExporter()
	newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) { return mem, nil }

	cfg := enabled("orderbot-test")
	cfg.SampleRatio = 0
	shutdown, err := SetupOTel(context.Background(), cfg, "v")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, span := otel.Tracer("reconcile/Reconciler").Start(context.Background(), "Sweep")
	if span.SpanContext().IsSampled() {
		t.Fatalf("root span sampled at ratio 0")
	}
	span.End()
}

func TestSetupOTel_RealExporterBuildsLazily(t *testing.T) {
	keepGlobals(t)
	for _, insecure := range []bool{true, false} {
		cfg := enabled("orderbot-test")
		cfg.Insecure = insecure
		shutdown, err := SetupOTel(context.Background(), cfg, "v")
		if err != nil {
			t.Fatalf("insecure=%v: %v", insecure, err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Fatalf("sdk provider not installed")
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = shutdown(ctx) // nothing listens on the endpoint; only must not hang
	}
}

func TestSetupOTel_ErrorsLeaveGlobals(t *testing.T) {
	keepGlobals(t)
	before, beforeProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()

	newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		return nil, errors.New("boom-exporter")
	}
	if _, err := SetupOTel(context.Background(), enabled("svc"), "v"); err == nil {
		t.Fatalf("exporter error not returned")
	}

	mem := tracetest.NewInMemoryExporter()
	newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) { return mem, nil }
	newResource = func(context.Context, string, string) (*resource.Resource, error) {
		return nil, errors.New("boom-resource")
	}
	if _, err := SetupOTel(context.Background(), enabled("svc"), "v"); err == nil {
		t.Fatalf("resource error not returned")
	}

	if otel.GetTracerProvider() != before || otel.GetTextMapPropagator() != beforeProp {
		t.Fatalf("globals changed on failure")
	}
}
