// Package metrics exposes the bot's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tierbot"

type Metrics struct {
	registry *prometheus.Registry

	Signals       *prometheus.CounterVec
	Entries       *prometheus.CounterVec
	Exits         *prometheus.CounterVec
	OrderFailures *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	OpenPositions prometheus.Gauge
	DailyPnL      prometheus.Gauge
	Emergency     prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "signals_total", Help: "Actionable execution signals"},
			[]string{"symbol", "direction"},
		),
		Entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "entries_total", Help: "Positions opened"},
			[]string{"symbol"},
		),
		Exits: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "exits_total", Help: "Positions closed by exit reason"},
			[]string{"symbol", "reason"},
		),
		OrderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "order_failures_total", Help: "Orders that exhausted their retries"},
			[]string{"symbol", "side"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "entry_rejections_total", Help: "Signals not acted on, by gate"},
			[]string{"gate"},
		),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "open_positions", Help: "Currently open positions"}),
		DailyPnL:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "daily_pnl", Help: "Realised pnl of the current trading day"}),
		Emergency:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "emergency_stop", Help: "1 while the emergency stop is active"}),
	}
	m.registry.MustRegister(
		m.Signals, m.Entries, m.Exits, m.OrderFailures, m.Rejections,
		m.OpenPositions, m.DailyPnL, m.Emergency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetEmergency(on bool) {
	if on {
		m.Emergency.Set(1)
		return
	}
	m.Emergency.Set(0)
}
