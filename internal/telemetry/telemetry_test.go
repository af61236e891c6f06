package telemetry

import (
	"context"
	"testing"
)

func TestInitDisabledIsNoop(t *testing.T) {
	p, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	_, span := StartClientSpan(context.Background(), p.Tracer, "x", AttrMethod.String("GET"))
	if span.SpanContext().IsValid() {
		t.Fatal("expected invalid span context from noop tracer")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	if _, err := Init(context.Background(), Config{Enabled: true, Exporter: "kafka"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestInitStdoutExporter(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: true, Exporter: "stdout", ServiceName: "trackit-test"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestStartClientSpanNilTracer(t *testing.T) {
	ctx, span := StartClientSpan(context.Background(), nil, "x")
	defer span.End()
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
}
