package oteltrace

import (
	"context"

	"github.com/paysys/payment-integration/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a Tracer backed by the globally registered otel provider.
// The host process is expected to install an sdktrace.TracerProvider with
// otel.SetTracerProvider before spans are recorded anywhere.
func New(name string) observability.Tracer {
	if name == "" {
		name = "payment-integration"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}

