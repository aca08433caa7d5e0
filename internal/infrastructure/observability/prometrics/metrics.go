package prometrics

import (
	"sync"

	"github.com/paysys/payment-integration/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry creates and memoizes the service's counters and histograms. Asking
// for the same name twice returns the already-registered collector.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	mu         sync.Mutex
	namespace  string
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func New(namespace string) Registry {
	return &registry{
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	cv, ok := r.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace, Name: name, Help: help,
		}, labelKeys)
		prometheus.MustRegister(cv)
		r.counters[name] = cv
	}
	return &counter{v: cv}
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	hv, ok := r.histograms[name]
	if !ok {
		if buckets == nil {
			buckets = prometheus.DefBuckets
		}
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: r.namespace, Name: name, Help: help, Buckets: buckets,
		}, labelKeys)
		prometheus.MustRegister(hv)
		r.histograms[name] = hv
	}
	return &histogram{v: hv}
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}
