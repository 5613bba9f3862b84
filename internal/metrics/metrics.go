// Package metrics exposes dispatch and quick-send counters for the daemon.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YangQing-Lin/hooky-cli/internal/quicksend"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

// Dispatch outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
)

// Metrics owns a private registry so tests and the daemon never collide on
// the global one.
type Metrics struct {
	registry *prometheus.Registry

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	quickSendTotal   *prometheus.CounterVec
	menuItems        prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hooky_dispatch_total",
			Help: "Webhook dispatches by outcome.",
		}, []string{"outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hooky_dispatch_duration_seconds",
			Help:    "Time spent in the transport per dispatch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		quickSendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hooky_quicksend_total",
			Help: "Quick-send invocations by final state and deciding step.",
		}, []string{"state", "via"}),
		menuItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hooky_menu_items",
			Help: "Context menu items currently built, parent included.",
		}),
	}
	m.registry.MustRegister(
		m.dispatchTotal,
		m.dispatchDuration,
		m.quickSendTotal,
		m.menuItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDispatch matches webhook.Observer.
func (m *Metrics) ObserveDispatch(cfg webhook.Config, result webhook.Result, elapsed time.Duration) {
	m.dispatchTotal.WithLabelValues(DispatchOutcome(result)).Inc()
	method := cfg.Method
	if method == "" {
		method = webhook.DefaultMethod
	}
	m.dispatchDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveOutcome is a quicksend outcome hook.
func (m *Metrics) ObserveOutcome(o quicksend.Outcome) {
	via := ""
	if o.Dispatched() {
		via = o.Via.String()
	}
	m.quickSendTotal.WithLabelValues(o.State.String(), via).Inc()
}

// SetMenuItems records the size of the last menu build.
func (m *Metrics) SetMenuItems(n int) {
	m.menuItems.Set(float64(n))
}

// DispatchOutcome classifies a result.
func DispatchOutcome(r webhook.Result) string {
	switch {
	case r.OK:
		return OutcomeSuccess
	case r.Status != 0:
		return OutcomeHTTPError
	default:
		return OutcomeNetworkError
	}
}
