package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ftpd/pkg/metrics"
)

// The registry is process-global and collectors can only be registered once,
// so everything runs in a single test.
func TestFTPMetrics(t *testing.T) {
	assert.Nil(t, NewFTPMetrics(), "disabled registry yields nil metrics")

	metrics.InitRegistry()
	require.True(t, metrics.IsEnabled())

	m := metrics.NewFTPMetrics()
	require.NotNil(t, m, "constructor is registered via init")

	impl, ok := m.(*ftpMetrics)
	require.True(t, ok)

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed(2 * time.Second)
	m.ConnectionRejected("acl")
	m.RecordCommand("RETR", 226)
	m.RecordCommand("RETR", 550)
	m.RecordLogin("password", nil)
	m.RecordLogin("password", errors.New("bad password"))
	m.RecordTLSUpgrade(nil)
	m.ObserveTransfer("download", 4096, 100*time.Millisecond, nil)
	m.ObserveTransfer("upload", 0, 50*time.Millisecond, errors.New("aborted"))

	assert.Equal(t, 2.0, testutil.ToFloat64(impl.connectionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.connectionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.connectionsRejected.WithLabelValues("acl")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.commandsTotal.WithLabelValues("RETR", "226")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.commandsTotal.WithLabelValues("RETR", "550")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.loginsTotal.WithLabelValues("password", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.loginsTotal.WithLabelValues("password", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.tlsUpgradesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.transfersTotal.WithLabelValues("download", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.transfersTotal.WithLabelValues("upload", "error")))
	assert.Equal(t, 4096.0, testutil.ToFloat64(impl.transferBytes.WithLabelValues("download")))

	// The nil-safe helpers tolerate a nil interface.
	var none metrics.FTPMetrics
	metrics.ConnectionOpened(none)
	metrics.RecordCommand(none, "NOOP", 200)
	metrics.ObserveTransfer(none, "download", 1, time.Millisecond, nil)
}
