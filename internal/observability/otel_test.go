package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/service-connect/internal/config"
)

func keepGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func enabled(name string, insecure bool) config.OTELConfig {
	return config.OTELConfig{Enabled: true, Insecure: insecure, Endpoint: "localhost:4317", ServiceName: name, SampleRatio: 1}
}

func TestSetup_DisabledIsNoOp(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), config.OTELConfig{Endpoint: "ignored:4317"}, Build{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("disabled setup must not replace the provider")
	}
}

func TestSetup_InstallsProviderAndPropagator(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		keepGlobals(t)
		shutdown, err := Setup(context.Background(), enabled("service-connect", insecure), Build{Version: "v1.0.0", Environment: "test"})
		if err != nil {
			t.Fatalf("insecure=%v: unexpected err: %v", insecure, err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Fatalf("expected *sdktrace.TracerProvider")
		}

		ctx, span := otel.Tracer("services/OrderService").Start(context.Background(), "Create")
		carrier := propagation.MapCarrier{}
		otel.GetTextMapPropagator().Inject(ctx, carrier)
		span.End()
		if carrier.Get("traceparent") == "" {
			t.Fatalf("traceparent was not injected")
		}

		sctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		_ = shutdown(sctx)
		cancel()
	}
}

func TestSetup_ExporterErrorLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	orig := newExporter
	t.Cleanup(func() { newExporter = orig })
	newExporter = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("boom-exporter")
	}

	before := otel.GetTracerProvider()
	if _, err := Setup(context.Background(), enabled("svc", true), Build{}); err == nil {
		t.Fatalf("expected error")
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("tracer provider changed on failure")
	}
}

func TestSetup_ResourceErrorLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	orig := newResource
	t.Cleanup(func() { newResource = orig })
	newResource = func(context.Context, string, Build) (*resource.Resource, error) {
		return nil, errors.New("boom-resource")
	}

	before := otel.GetTextMapPropagator()
	if _, err := Setup(context.Background(), enabled("svc", true), Build{}); err == nil {
		t.Fatalf("expected error")
	}
	if otel.GetTextMapPropagator() != before {
		t.Fatalf("propagator changed on failure")
	}
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(StatusTransitions.WithLabelValues("Done"))
	StatusTransitions.WithLabelValues("Done").Inc()
	if got := testutil.ToFloat64(StatusTransitions.WithLabelValues("Done")); got != before+1 {
		t.Fatalf("transitions{Done} = %v; want %v", got, before+1)
	}
}
