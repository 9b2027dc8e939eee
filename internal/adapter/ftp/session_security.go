package ftp

import (
	"crypto/tls"
	"strings"
	"time"

	"github.com/marmos91/ftpd/internal/logger"
	"github.com/marmos91/ftpd/pkg/metrics"
)

func (s *session) handleAUTH(arg string) bool {
	mech := strings.ToUpper(arg)
	if mech != "TLS" && mech != "SSL" {
		s.reply(504, "Unknown security mechanism.")
		return true
	}
	if s.tlsActive {
		s.reply(534, "TLS already active.")
		return true
	}
	if s.server.tlsConfig == nil {
		s.reply(534, "TLS not available.")
		return true
	}

	// The 234 goes out in cleartext; everything after is inside the
	// handshake.
	s.reply(234, "AUTH TLS successful.")

	tlsConn := tls.Server(s.conn, s.server.tlsConfig)
	s.conn.SetDeadline(time.Now().Add(s.server.opts.IdleTimeout))
	err := tlsConn.Handshake()
	s.conn.SetDeadline(time.Time{})
	metrics.RecordTLSUpgrade(s.server.metrics, err)
	if err != nil {
		// A failed upgrade leaves the channel in an unknown state; the
		// only safe move is to drop the session.
		logger.WarnCtx(s.ctx, "control channel handshake failed", logger.Err(err))
		return false
	}

	s.mu.Lock()
	s.conn = tlsConn
	s.telnet.Reset(tlsConn)
	s.reader.Reset(s.telnet)
	s.writer.Reset(tlsConn)
	s.tlsActive = true
	s.mu.Unlock()

	logger.InfoCtx(s.ctx, "control channel upgraded to TLS")
	return true
}

func (s *session) handlePBSZ(arg string) bool {
	if !s.tlsActive {
		s.reply(503, "AUTH TLS required first.")
		return true
	}
	// Streaming TLS has no protection buffer; 0 is the only size, whatever
	// the client asked for.
	s.reply(200, "PBSZ=0")
	return true
}

func (s *session) handlePROT(arg string) bool {
	if !s.tlsActive {
		s.reply(503, "AUTH TLS required first.")
		return true
	}

	switch strings.ToUpper(arg) {
	case "C":
		s.prot = 'C'
		s.reply(200, "Protection level set to C.")
	case "P", "S", "E":
		// Safe and Confidential collapse to Private; plain TLS is all the
		// data channel offers.
		s.prot = 'P'
		s.reply(200, "Protection level set to P.")
	default:
		s.reply(504, "Unknown protection level.")
	}
	return true
}
