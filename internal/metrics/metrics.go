package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "workspace_provision"

// Recorder collects metrics for a single run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal          *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	stepDuration       *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provision_runs_total",
				Help: "Total number of provisioning runs by final state",
			},
			[]string{"outcome"},
		),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provision_notifications_total",
				Help: "Total number of account notifications by result",
			},
			[]string{"result"},
		),
		stepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provision_step_duration_seconds",
				Help:    "Duration of each provisioning step in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"step"},
		),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RunFinished(outcome string) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(outcome).Inc()
}

// Notification records "sent", "skipped" or "failed".
func (r *Recorder) Notification(result string) {
	if r == nil {
		return
	}
	r.notificationsTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveStep(step string, d time.Duration) {
	if r == nil {
		return
	}
	r.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// Push sends the collected metrics to a Pushgateway. An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url string) error {
	if r == nil || url == "" {
		return nil
	}
	return push.New(url, jobName).Gatherer(r.registry).PushContext(ctx)
}
