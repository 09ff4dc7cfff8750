package prometheus

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-restclient/core"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultLabels covers every tag the client and the queue executor emit.
// Tags outside this set are dropped; missing ones are exported empty.
var DefaultLabels = []string{"client", "method", "status", "status_code", "error_kind", "job_id"}

// DefaultDurationBuckets are in milliseconds.
var DefaultDurationBuckets = prom.ExponentialBuckets(5, 2, 12)

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitizeName(namespace)
	}
}

func WithLabels(labels ...string) Option {
	return func(r *Recorder) {
		if len(labels) > 0 {
			r.labels = append([]string(nil), labels...)
		}
	}
}

func WithBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// Recorder implements core.MetricsRecorder on prometheus counter and
// histogram vectors, creating one vector per metric name on first use.
type Recorder struct {
	registry  *prom.Registry
	factory   promauto.Factory
	namespace string
	labels    []string
	buckets   []float64

	mu         sync.Mutex
	counters   map[string]*prom.CounterVec
	histograms map[string]*prom.HistogramVec
}

func NewRecorder(registry *prom.Registry, opts ...Option) *Recorder {
	if registry == nil {
		registry = prom.NewRegistry()
	}
	recorder := &Recorder{
		registry:   registry,
		factory:    promauto.With(registry),
		labels:     append([]string(nil), DefaultLabels...),
		buckets:    DefaultDurationBuckets,
		counters:   map[string]*prom.CounterVec{},
		histograms: map[string]*prom.HistogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(recorder)
		}
	}
	return recorder
}

func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter := r.counter(name)
	if counter == nil {
		return
	}
	counter.With(r.labelValues(tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram := r.histogram(name)
	if histogram == nil {
		return
	}
	histogram.With(r.labelValues(tags)).Observe(value)
}

func (r *Recorder) counter(name string) *prom.CounterVec {
	metricName := r.metricName(name)
	if metricName == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if counter, ok := r.counters[metricName]; ok {
		return counter
	}
	counter := r.factory.NewCounterVec(prom.CounterOpts{
		Name: metricName,
		Help: fmt.Sprintf("Counter recorded as %s.", strings.TrimSpace(name)),
	}, r.labels)
	r.counters[metricName] = counter
	return counter
}

func (r *Recorder) histogram(name string) *prom.HistogramVec {
	metricName := r.metricName(name)
	if metricName == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if histogram, ok := r.histograms[metricName]; ok {
		return histogram
	}
	histogram := r.factory.NewHistogramVec(prom.HistogramOpts{
		Name:    metricName,
		Help:    fmt.Sprintf("Histogram recorded as %s.", strings.TrimSpace(name)),
		Buckets: r.buckets,
	}, r.labels)
	r.histograms[metricName] = histogram
	return histogram
}

func (r *Recorder) metricName(name string) string {
	sanitized := sanitizeName(name)
	if sanitized == "" {
		return ""
	}
	if r.namespace != "" {
		return r.namespace + "_" + sanitized
	}
	return sanitized
}

func (r *Recorder) labelValues(tags map[string]string) prom.Labels {
	values := make(prom.Labels, len(r.labels))
	for _, label := range r.labels {
		values[label] = tags[label]
	}
	return values
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for i, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_', ch == ':':
			b.WriteRune(ch)
		case ch >= '0' && ch <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
