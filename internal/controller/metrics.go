package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts controller outcomes.
type Metrics struct {
	loads       *prometheus.CounterVec
	dropped     prometheus.Counter
	staleResult prometheus.Counter
	saves       *prometheus.CounterVec
}

// NewMetrics registers the controller metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaedit_loads_total",
			Help: "Record loads by outcome (loaded, absent, no_context, error)",
		}, []string{"outcome"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "mediaedit_dropped_submissions_total",
			Help: "Edits submitted while another save was in flight",
		}),
		staleResult: f.NewCounter(prometheus.CounterOpts{
			Name: "mediaedit_stale_completions_total",
			Help: "Remote completions ignored because the record changed",
		}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaedit_saves_total",
			Help: "Completed saves by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) load(outcome string) {
	if m != nil {
		m.loads.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) droppedSubmission() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.staleResult.Inc()
	}
}

func (m *Metrics) saved(success bool) {
	if m == nil {
		return
	}
	if success {
		m.saves.WithLabelValues("success").Inc()
	} else {
		m.saves.WithLabelValues("failure").Inc()
	}
}
