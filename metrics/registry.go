package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bountyd"

// CountBuckets suits small discrete counts (attempt sizes, retries).
var CountBuckets = []float64{1, 2, 5, 10, 25, 50, 100}

// DurationBuckets suits network round-trips measured in seconds.
var DurationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// ComponentRegistry namespaces metrics per component on the default
// prometheus registerer.
type ComponentRegistry struct {
	subsystem string
}

// NewComponentRegistry creates a registry scope for one component.
func NewComponentRegistry(subsystem string) *ComponentRegistry {
	return &ComponentRegistry{subsystem: subsystem}
}

func (r *ComponentRegistry) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	return promauto.NewCounter(opts)
}

func (r *ComponentRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	return promauto.NewCounterVec(opts, labels)
}

func (r *ComponentRegistry) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	return promauto.NewGauge(opts)
}

func (r *ComponentRegistry) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	return promauto.NewHistogram(opts)
}

// Handler exposes the default prometheus registry over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}
