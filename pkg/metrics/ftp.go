package metrics

import "time"

// FTPMetrics records protocol-level events: connections, commands, logins,
// TLS upgrades, and data transfers.
//
// A nil FTPMetrics is valid and records nothing; the helpers below nil-check
// so call sites never have to.
type FTPMetrics interface {
	// ConnectionOpened records an accepted control connection.
	ConnectionOpened()

	// ConnectionClosed records a finished session and its lifetime.
	ConnectionClosed(duration time.Duration)

	// ConnectionRejected records a connection refused before a session
	// started (reasons: "acl", "rate_limit", "max_connections").
	ConnectionRejected(reason string)

	// RecordCommand records a dispatched command and the reply code sent.
	RecordCommand(verb string, code int)

	// RecordLogin records an authentication attempt.
	// method is "password" or "anonymous".
	RecordLogin(method string, err error)

	// RecordTLSUpgrade records an AUTH TLS handshake outcome.
	RecordTLSUpgrade(err error)

	// ObserveTransfer records a completed data transfer.
	// direction is "upload" or "download".
	ObserveTransfer(direction string, bytes int64, duration time.Duration, err error)
}

// NewFTPMetrics creates a Prometheus-backed FTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or the
// Prometheus implementation package was not linked in.
func NewFTPMetrics() FTPMetrics {
	if !IsEnabled() || newPrometheusFTPMetrics == nil {
		return nil
	}
	return newPrometheusFTPMetrics()
}

// newPrometheusFTPMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusFTPMetrics func() FTPMetrics

// RegisterFTPMetricsConstructor registers the Prometheus FTP metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterFTPMetricsConstructor(constructor func() FTPMetrics) {
	newPrometheusFTPMetrics = constructor
}

// ConnectionOpened records an accepted control connection.
func ConnectionOpened(m FTPMetrics) {
	if m != nil {
		m.ConnectionOpened()
	}
}

// ConnectionClosed records a finished session.
func ConnectionClosed(m FTPMetrics, duration time.Duration) {
	if m != nil {
		m.ConnectionClosed(duration)
	}
}

// ConnectionRejected records a refused connection.
func ConnectionRejected(m FTPMetrics, reason string) {
	if m != nil {
		m.ConnectionRejected(reason)
	}
}

// RecordCommand records a dispatched command and its reply code.
func RecordCommand(m FTPMetrics, verb string, code int) {
	if m != nil {
		m.RecordCommand(verb, code)
	}
}

// RecordLogin records an authentication attempt.
func RecordLogin(m FTPMetrics, method string, err error) {
	if m != nil {
		m.RecordLogin(method, err)
	}
}

// RecordTLSUpgrade records an AUTH TLS handshake outcome.
func RecordTLSUpgrade(m FTPMetrics, err error) {
	if m != nil {
		m.RecordTLSUpgrade(err)
	}
}

// ObserveTransfer records a completed data transfer.
func ObserveTransfer(m FTPMetrics, direction string, bytes int64, duration time.Duration, err error) {
	if m != nil {
		m.ObserveTransfer(direction, bytes, duration, err)
	}
}
