// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orderflow"

// OrderMetrics 订单生命周期相关的指标。方法对 nil 接收者安全。
type OrderMetrics struct {
	Transitions       *prometheus.CounterVec
	TransitionLatency *prometheus.HistogramVec
	StockChecks       *prometheus.CounterVec
	PublishFailures   prometheus.Counter
	Verifications     *prometheus.CounterVec
}

// NewOrderMetrics 创建并注册指标；reg 为 nil 时注册到默认 registry
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &OrderMetrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transition requests by event and outcome.",
		}, []string{"event", "outcome"}),
		TransitionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_ms",
			Help:      "Transition latency in milliseconds, lock wait included.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"event"}),
		StockChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_checks_total",
			Help:      "Availability checks by result.",
		}, []string{"result"}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_publish_failures_total",
			Help:      "Status notifications that could not be published after commit.",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_attempts_total",
			Help:      "Verification code submissions by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Transitions, m.TransitionLatency, m.StockChecks, m.PublishFailures, m.Verifications)
	return m
}

func (m *OrderMetrics) ObserveTransition(event, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(event, outcome).Inc()
	m.TransitionLatency.WithLabelValues(event).Observe(float64(time.Since(started).Microseconds()) / 1000)
}

func (m *OrderMetrics) StockCheck(result string) {
	if m == nil {
		return
	}
	m.StockChecks.WithLabelValues(result).Inc()
}

func (m *OrderMetrics) PublishFailed() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

func (m *OrderMetrics) Verification(result string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
