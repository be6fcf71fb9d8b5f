// Package metric exposes Prometheus counters for the traffic of a client
// session.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kenes"

// Recorder counts classified, dropped and emitted events. A nil Recorder
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	classified *prometheus.CounterVec // By event and outcome (rule name)
	dropped    *prometheus.CounterVec // By event and reason (malformed/unsupported/no_listener)
	emitted    *prometheus.CounterVec // By event and status (ok/error)
}

// NewRecorder creates the counters and registers them with a fresh registry.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incoming",
			Name:      "classified_total",
			Help:      "Inbound events delivered to a listener",
		}, []string{"event", "outcome"}),

		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incoming",
			Name:      "dropped_total",
			Help:      "Inbound events dropped without a listener callback",
		}, []string{"event", "reason"}),

		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outgoing",
			Name:      "emitted_total",
			Help:      "Outbound events handed to the transport",
		}, []string{"event", "status"}),
	}

	for _, collector := range []prometheus.Collector{r.classified, r.dropped, r.emitted} {
		if err := r.registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Recorder) Classified(event, outcome string) {
	if r == nil {
		return
	}
	r.classified.WithLabelValues(event, outcome).Inc()
}

func (r *Recorder) Dropped(event, reason string) {
	if r == nil {
		return
	}
	r.dropped.WithLabelValues(event, reason).Inc()
}

func (r *Recorder) Emitted(event string, err error) {
	if r == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	r.emitted.WithLabelValues(event, status).Inc()
}

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
