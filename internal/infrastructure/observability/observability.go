package observability

import (
	"github.com/paysys/payment-integration/internal/observability"
)

// New assembles the telemetry provider handed to use cases and transports.
// Nil arguments degrade to nop implementations, so a partially wired provider
// (tests, the migrate command) is always safe to use.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &provider{
		tracer: tracer,
		logger: logger,
		metrics: &metricSet{
			counters:   counters,
			histograms: histograms,
		},
	}
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

func (p *provider) Tracer() observability.Tracer { return p.tracer }

func (p *provider) Logger() observability.Logger { return p.logger }

func (p *provider) Metrics() observability.Metrics { return p.metrics }

// metricSet resolves metric keys to the instruments registered at startup.
// Unknown keys resolve to nops rather than panicking.
type metricSet struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *metricSet) Counter(key observability.MetricKey) observability.Counter {
	if c, ok := m.counters[key]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m *metricSet) Histogram(key observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[key]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}
