package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the three telemetry concerns behind one injection
// point. Application code depends on this package only; the zap, prometheus,
// and otel providers live in infrastructure.
type Observability interface {
	Tracer() Tracer
	Logger() Logger
	Metrics() Metrics
}

// Tracer starts spans. It intentionally leaks the otel span type: span
// manipulation is otel vocabulary either way, and wrapping it buys nothing.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Metrics resolves the instruments registered at startup by key.
type Metrics interface {
	Counter(key MetricKey) Counter
	Histogram(key MetricKey) Histogram
}

type MetricKey string

type Counter interface {
	Add(delta float64, labels ...Label)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
}

type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

// Logger is structured logging with a fixed small level set.
type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

type Field struct {
	Key   string
	Value any
}

func F(k string, v any) Field { return Field{Key: k, Value: v} }
