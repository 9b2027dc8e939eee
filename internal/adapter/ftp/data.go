package ftp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/ftpd/internal/logger"
)

// setupPassive opens a single-use listener on a port from the configured
// passive range and records it as the pending data setup. Any previous
// setup is discarded.
func (s *session) setupPassive() (int, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.discardSetupLocked()

	start, end := s.server.opts.PassivePortStart, s.server.opts.PassivePortEnd
	span := end - start + 1
	for i := 0; i < span; i++ {
		port := start + int(s.server.nextPassivePort.Add(1)-1)%span
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		s.pasvListener = l
		return l.Addr().(*net.TCPAddr).Port, nil
	}
	return 0, fmt.Errorf("no free port in passive range %d-%d", start, end)
}

// setupActive records a PORT target as the pending data setup.
func (s *session) setupActive(host string, port int) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.discardSetupLocked()
	s.activeAddr = net.JoinHostPort(host, fmt.Sprintf("%d", port))
}

func (s *session) hasDataSetup() bool {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.pasvListener != nil || s.activeAddr != ""
}

// obtainData turns the pending setup into a connected data channel. The
// setup is consumed either way: a PASV listener accepts exactly one
// connection. With PROT P the connection is wrapped as a TLS server using
// the control channel's configuration.
func (s *session) obtainData() (net.Conn, error) {
	s.dataMu.Lock()
	listener := s.pasvListener
	addr := s.activeAddr
	s.pasvListener = nil
	s.activeAddr = ""
	s.dataMu.Unlock()

	var conn net.Conn
	var err error
	switch {
	case listener != nil:
		deadline := time.Now().Add(s.server.opts.DataTimeout)
		if tl, ok := listener.(*net.TCPListener); ok {
			tl.SetDeadline(deadline)
		}
		conn, err = listener.Accept()
		listener.Close()
	case addr != "":
		conn, err = net.DialTimeout("tcp", addr, s.server.opts.DataTimeout)
	default:
		return nil, errNoDataSetup
	}
	if err != nil {
		return nil, err
	}

	if s.prot == 'P' {
		tlsConn := tls.Server(conn, s.server.tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("data channel handshake: %w", err)
		}
		conn = tlsConn
	}

	s.dataMu.Lock()
	s.dataConn = conn
	s.dataMu.Unlock()
	s.transferring.Store(true)

	// A concurrent stop() may have swept the data side before the connection
	// was recorded; don't hand a live socket to a dead session.
	if !s.active.Load() {
		s.closeDataSetup()
		return nil, errors.New("session stopped")
	}
	return conn, nil
}

// releaseData closes the finished data connection and restarts the idle
// clock now that the session is back to waiting for commands.
func (s *session) releaseData() {
	s.dataMu.Lock()
	if s.dataConn != nil {
		s.dataConn.Close()
		s.dataConn = nil
	}
	s.dataMu.Unlock()
	s.transferring.Store(false)
	s.touch()
}

// closeDataSetup tears down everything on the data side: pending listener,
// pending active target and any live connection.
func (s *session) closeDataSetup() {
	s.dataMu.Lock()
	s.discardSetupLocked()
	if s.dataConn != nil {
		s.dataConn.Close()
		s.dataConn = nil
	}
	s.dataMu.Unlock()
	s.transferring.Store(false)
}

func (s *session) discardSetupLocked() {
	if s.pasvListener != nil {
		s.pasvListener.Close()
		s.pasvListener = nil
		logger.DebugCtx(s.ctx, "previous passive listener discarded")
	}
	s.activeAddr = ""
}

// passiveHost picks the IPv4 address advertised in the 227 reply: the
// configured external IP when set, otherwise the control connection's local
// address.
func (s *session) passiveHost() (net.IP, error) {
	if ext := s.server.opts.PassiveExternalIP; ext != "" {
		ip := net.ParseIP(ext)
		if ip = ip.To4(); ip != nil {
			return ip, nil
		}
		return nil, fmt.Errorf("external IP %q is not IPv4", ext)
	}

	host, _, err := net.SplitHostPort(s.conn.LocalAddr().String())
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	if ip = ip.To4(); ip == nil {
		return nil, fmt.Errorf("control address %q has no IPv4 form", host)
	}
	return ip, nil
}
