package executor

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notargets/ltsched/taskgraph"
)

// Metrics counts executed tasks and times the kernels. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Tasks    *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Steps    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (m *Metrics) {
	m = &Metrics{
		Tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ltsched",
			Name:      "tasks_total",
			Help:      "Number of tasks executed, by kind and time level.",
		}, []string{"kind", "level"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ltsched",
			Name:      "kernel_failures_total",
			Help:      "Number of kernels that returned an error, by kind.",
		}, []string{"kind"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ltsched",
			Name:      "kernel_duration_seconds",
			Help:      "Wall time of kernel invocations, by kind.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"kind"}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ltsched",
			Name:      "steps_total",
			Help:      "Number of completed task list traversals.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Tasks, m.Failures, m.Duration, m.Steps)
	}
	return
}

func (m *Metrics) observe(task taskgraph.Task, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	kind := task.Kind.String()
	m.Duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		m.Failures.WithLabelValues(kind).Inc()
		return
	}
	m.Tasks.With(prometheus.Labels{"kind": kind, "level": strconv.Itoa(task.TimeLevel)}).Inc()
}

func (m *Metrics) stepDone() {
	if m == nil {
		return
	}
	m.Steps.Inc()
}
