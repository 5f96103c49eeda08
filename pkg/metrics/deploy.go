package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DeployMetrics is the Prometheus implementation of deploy.Metrics.
type DeployMetrics struct {
	deploys        *prometheus.CounterVec
	deployDuration *prometheus.HistogramVec
	active         prometheus.Gauge
}

// NewDeployMetrics creates Prometheus-backed deployment metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDeployMetrics() *DeployMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &DeployMetrics{
		deploys: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "slipway_deploys_total",
				Help: "Total number of deployment attempts by outcome",
			},
			[]string{"status"}, // "success", "failure"
		),
		deployDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "slipway_deploy_duration_seconds",
				Help: "End-to-end duration of deployment attempts in seconds",
				Buckets: []float64{
					0.1, // trivial artifacts
					0.5,
					1,
					2.5,
					5,
					10, // large artifact or slow app startup
					30,
					60,
				},
			},
			[]string{"status"},
		),
		active: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "slipway_active_deployment",
				Help: "Whether an application instance is currently running (0 or 1)",
			},
		),
	}
}

// ObserveDeploy records one deployment attempt and its duration.
func (m *DeployMetrics) ObserveDeploy(status string, duration time.Duration) {
	m.deploys.WithLabelValues(status).Inc()
	m.deployDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// SetActive records whether an instance currently occupies the slot.
func (m *DeployMetrics) SetActive(active bool) {
	if active {
		m.active.Set(1)
	} else {
		m.active.Set(0)
	}
}
