package ftp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/marmos91/ftpd/internal/acl"
	"github.com/marmos91/ftpd/internal/logger"
	"github.com/marmos91/ftpd/internal/ratelimit"
	"github.com/marmos91/ftpd/pkg/identity"
	"github.com/marmos91/ftpd/pkg/metrics"
)

// Options carries everything the server needs from configuration, already
// resolved: no config-file concerns leak in here.
type Options struct {
	Host string
	Port int

	// RootDir is the fallback home for users without one of their own.
	RootDir string

	Banner         string
	MaxConnections int
	IdleTimeout    time.Duration
	DataTimeout    time.Duration

	PassivePortStart  int
	PassivePortEnd    int
	PassiveExternalIP string

	AllowAnonymous bool
	AnonymousRoot  string

	RunAsUser  string
	RunAsGroup string
}

// Server accepts control connections and runs one session per client.
type Server struct {
	opts      Options
	directory identity.Directory
	access    *acl.IPAccessControl
	limiter   *ratelimit.Limiter
	metrics   metrics.FTPMetrics

	// tlsConfig is nil when FTPS is not configured; AUTH then answers 534
	// and the server stays plaintext-only.
	tlsConfig *tls.Config

	listener   net.Listener
	supervisor *supervisor

	nextPassivePort atomic.Int32
	closing         atomic.Bool
}

// NewServer wires a server from its collaborators. A nil access list allows
// every address; a nil limiter disables rate limiting; a nil tlsConfig
// disables FTPS.
func NewServer(opts Options, directory identity.Directory, access *acl.IPAccessControl, limiter *ratelimit.Limiter, tlsConfig *tls.Config) *Server {
	return &Server{
		opts:       opts,
		directory:  directory,
		access:     access,
		limiter:    limiter,
		metrics:    metrics.NewFTPMetrics(),
		tlsConfig:  tlsConfig,
		supervisor: newSupervisor(opts.MaxConnections, opts.IdleTimeout),
	}
}

// Listen binds the control port. When a run-as user is configured,
// privileges are dropped right after the bind so port 21 works from a root
// start without the sessions running as root.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l

	if err := dropPrivileges(s.opts.RunAsUser, s.opts.RunAsGroup); err != nil {
		l.Close()
		s.listener = nil
		return err
	}

	logger.Info("ftp server listening",
		"addr", l.Addr().String(),
		"tls", s.tlsConfig != nil,
		"max_connections", s.opts.MaxConnections)
	return nil
}

// Serve accepts control connections until Shutdown. Listen must have been
// called first.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("ftp: Serve called before Listen")
	}

	go s.supervisor.run()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Addr returns the bound control address, or nil before ListenAndServe.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// SessionCount reports how many sessions are currently live.
func (s *Server) SessionCount() int {
	return s.supervisor.count()
}

func (s *Server) handleConn(conn net.Conn) {
	ip, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		ip = conn.RemoteAddr().String()
	}

	if !s.access.IsAllowed(ip) {
		logger.Info("connection denied by access list", logger.ClientIP(ip))
		metrics.ConnectionRejected(s.metrics, "acl")
		conn.Close()
		return
	}

	if !s.limiter.AllowConnection(ip) {
		logger.Warn("connection rate limit exceeded", logger.ClientIP(ip))
		metrics.ConnectionRejected(s.metrics, "rate_limit")
		conn.Close()
		return
	}

	sess := newSession(s, conn)
	if !s.supervisor.admit(sess) {
		// At capacity: close without a banner so the client sees a clean
		// refusal instead of a half-open session.
		logger.Warn("connection refused at capacity", logger.ClientIP(ip))
		metrics.ConnectionRejected(s.metrics, "max_connections")
		conn.Close()
		return
	}

	metrics.ConnectionOpened(s.metrics)
	sess.serve()
}

// Shutdown stops accepting and winds down every session, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}
	return s.supervisor.shutdown(ctx)
}
