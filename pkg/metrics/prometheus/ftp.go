// Package prometheus provides the Prometheus implementation of the metrics
// interfaces in pkg/metrics.
//
// Import it for its side effect:
//
//	import _ "github.com/marmos91/ftpd/pkg/metrics/prometheus"
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/ftpd/pkg/metrics"
)

func init() {
	metrics.RegisterFTPMetricsConstructor(NewFTPMetrics)
}

// ftpMetrics is the Prometheus implementation of metrics.FTPMetrics.
type ftpMetrics struct {
	connectionsTotal    prometheus.Counter
	connectionsActive   prometheus.Gauge
	connectionsRejected *prometheus.CounterVec
	sessionDuration     prometheus.Histogram
	commandsTotal       *prometheus.CounterVec
	loginsTotal         *prometheus.CounterVec
	tlsUpgradesTotal    *prometheus.CounterVec
	transfersTotal      *prometheus.CounterVec
	transferBytes       *prometheus.CounterVec
	transferDuration    *prometheus.HistogramVec
}

// NewFTPMetrics creates a new Prometheus-backed FTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewFTPMetrics() metrics.FTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ftpMetrics{
		connectionsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftpd_connections_total",
				Help: "Total number of accepted control connections",
			},
		),
		connectionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ftpd_connections_active",
				Help: "Current number of live sessions",
			},
		),
		connectionsRejected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_connections_rejected_total",
				Help: "Connections refused before a session started, by reason",
			},
			[]string{"reason"},
		),
		sessionDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "ftpd_session_duration_seconds",
				Help: "Distribution of session lifetimes",
				Buckets: []float64{
					1,    // short probes
					10,   // single-file clients
					60,   // 1m
					300,  // 5m - idle timeout default
					1800, // 30m
					3600, // 1h - long mirror runs
				},
			},
		),
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_commands_total",
				Help: "Total commands dispatched by verb and reply code",
			},
			[]string{"verb", "code"},
		),
		loginsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_logins_total",
				Help: "Authentication attempts by method and status",
			},
			[]string{"method", "status"},
		),
		tlsUpgradesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_tls_upgrades_total",
				Help: "AUTH TLS handshake outcomes",
			},
			[]string{"status"},
		),
		transfersTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_transfers_total",
				Help: "Completed data transfers by direction and status",
			},
			[]string{"direction", "status"},
		),
		transferBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_transfer_bytes_total",
				Help: "Total bytes moved over data connections",
			},
			[]string{"direction"},
		),
		transferDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ftpd_transfer_duration_milliseconds",
				Help: "Duration of data transfers in milliseconds",
				Buckets: []float64{
					10,    // 10ms - tiny files on LAN
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s
					5000,  // 5s
					30000, // 30s - large files
					60000, // 1m
				},
			},
			[]string{"direction"},
		),
	}
}

func (m *ftpMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

func (m *ftpMetrics) ConnectionClosed(duration time.Duration) {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
	m.sessionDuration.Observe(duration.Seconds())
}

func (m *ftpMetrics) ConnectionRejected(reason string) {
	if m == nil {
		return
	}
	m.connectionsRejected.WithLabelValues(reason).Inc()
}

func (m *ftpMetrics) RecordCommand(verb string, code int) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(verb, strconv.Itoa(code)).Inc()
}

func (m *ftpMetrics) RecordLogin(method string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.loginsTotal.WithLabelValues(method, status).Inc()
}

func (m *ftpMetrics) RecordTLSUpgrade(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.tlsUpgradesTotal.WithLabelValues(status).Inc()
}

func (m *ftpMetrics) ObserveTransfer(direction string, bytes int64, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.transfersTotal.WithLabelValues(direction, status).Inc()
	m.transferDuration.WithLabelValues(direction).Observe(duration.Seconds() * 1000)
	if bytes > 0 {
		m.transferBytes.WithLabelValues(direction).Add(float64(bytes))
	}
}
