package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects exchange-level counters.
type Metrics struct {
	exchanges     *prometheus.CounterVec
	fragments     prometheus.Counter
	cancellations prometheus.Counter
	toolDispatch  *prometheus.CounterVec
}

// NewMetrics registers the coordinator's collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hirebot",
			Subsystem: "coordinator",
			Name:      "exchanges_total",
			Help:      "Message exchanges by provider and outcome.",
		}, []string{"provider", "outcome"}),
		fragments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hirebot",
			Subsystem: "coordinator",
			Name:      "stream_fragments_total",
			Help:      "Streaming fragments received from providers.",
		}),
		cancellations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hirebot",
			Subsystem: "coordinator",
			Name:      "stream_cancellations_total",
			Help:      "Streams cancelled by the caller before completion.",
		}),
		toolDispatch: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hirebot",
			Subsystem: "coordinator",
			Name:      "tool_dispatches_total",
			Help:      "Tool invocations dispatched, by final status.",
		}, []string{"status"}),
	}
}

// NopMetrics returns metrics backed by a throwaway registry, for callers that
// do not scrape.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
