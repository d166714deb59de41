package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the dashboard and the worker.
type Metrics struct {
	// Ledger mutations by operation and outcome
	Mutations *prometheus.CounterVec

	// Current number of records in the ledger
	Records prometheus.Gauge

	// Spreadsheet exports by outcome
	Exports *prometheus.CounterVec

	// HTTP request latency by route and status class
	RequestDuration *prometheus.HistogramVec

	// Full mirrors written to Google Sheets by trigger and outcome
	Mirrors *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ressarcimento_ledger_mutations_total",
			Help: "Ledger mutations by operation and result",
		}, []string{"operation", "result"}), // result: "ok", "error"

		Records: f.NewGauge(prometheus.GaugeOpts{
			Name: "ressarcimento_ledger_records",
			Help: "Number of records currently held by the ledger",
		}),

		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ressarcimento_exports_total",
			Help: "Weekly spreadsheet exports by result",
		}, []string{"result"}), // result: "ok", "empty", "error"

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ressarcimento_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status class",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "status"}),

		Mirrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ressarcimento_mirror_runs_total",
			Help: "Full ledger mirrors to Google Sheets by trigger and result",
		}, []string{"trigger", "result"}), // trigger: "message", "tick", "startup"
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveMutation records a ledger mutation and, on success, the new size.
func (m *Metrics) ObserveMutation(operation string, count int, err error) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(operation, result(err)).Inc()
	if err == nil {
		m.Records.Set(float64(count))
	}
}

// SetRecords sets the ledger size gauge, used after a load.
func (m *Metrics) SetRecords(count int) {
	if m != nil {
		m.Records.Set(float64(count))
	}
}

// IncrementExport records an export attempt. empty marks a refused empty week.
func (m *Metrics) IncrementExport(empty bool, err error) {
	if m == nil {
		return
	}
	r := result(err)
	if empty {
		r = "empty"
	}
	m.Exports.WithLabelValues(r).Inc()
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, statusClass(status)).Observe(d.Seconds())
	}
}

// IncrementMirror records one mirror run.
func (m *Metrics) IncrementMirror(trigger string, err error) {
	if m != nil {
		m.Mirrors.WithLabelValues(trigger, result(err)).Inc()
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
