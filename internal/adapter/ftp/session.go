package ftp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/ftpd/internal/adapter/ftp/sandbox"
	"github.com/marmos91/ftpd/internal/logger"
	"github.com/marmos91/ftpd/pkg/identity"
	"github.com/marmos91/ftpd/pkg/metrics"
)

// authStage tracks the USER/PASS login sequence.
type authStage int

const (
	stageAwaitingUser authStage = iota
	stageAwaitingPass
	stageAuthenticated
)

// transferType is the representation type selected with TYPE.
type transferType byte

const (
	typeASCII transferType = 'A'
	typeImage transferType = 'I'
)

// session is one control connection and all the state that hangs off it.
type session struct {
	id       string
	server   *Server
	remoteIP string

	// mu guards conn, reader and writer: AUTH TLS swaps all three while the
	// reply path may be flushing.
	mu     sync.Mutex
	conn   net.Conn
	telnet *telnetReader
	reader *bufio.Reader
	writer *bufio.Writer

	stage       authStage
	pendingUser string
	user        *identity.User
	box         *sandbox.Sandbox
	cwd         string

	ttype      transferType
	prot       byte // 'C' or 'P'
	tlsActive  bool
	renameFrom string
	restOffset int64

	// Data channel setup. At most one of pasvListener / activeAddr is set.
	dataMu       sync.Mutex
	pasvListener net.Listener
	activeAddr   string
	dataConn     net.Conn

	lastReply int

	active atomic.Bool
	// transferring is set while a data connection is live; it exempts the
	// session from idle reaping, since a full transfer has no time limit.
	transferring atomic.Bool
	lastActivity atomic.Int64 // unix nanos
	startTime    time.Time

	ctx context.Context
}

func newSession(srv *Server, conn net.Conn) *session {
	ip, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		ip = conn.RemoteAddr().String()
	}

	s := &session{
		id:        uuid.New().String(),
		server:    srv,
		remoteIP:  ip,
		conn:      conn,
		stage:     stageAwaitingUser,
		ttype:     typeASCII,
		prot:      'C',
		startTime: time.Now(),
	}
	s.telnet = newTelnetReader(conn)
	s.reader = bufio.NewReader(s.telnet)
	s.writer = bufio.NewWriter(conn)
	s.active.Store(true)
	s.touch()
	s.ctx = logger.WithContext(context.Background(), logger.NewLogContext(s.id, ip))
	return s
}

// serve runs the command loop until the connection drops or the session is
// stopped. The caller owns supervisor registration.
func (s *session) serve() {
	defer s.close()

	logger.InfoCtx(s.ctx, "session started", logger.ClientIP(s.remoteIP))
	s.reply(220, s.server.opts.Banner)

	for s.active.Load() {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.server.opts.IdleTimeout)); err != nil {
			return
		}

		line, err := readLine(s.reader)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.InfoCtx(s.ctx, "session idle timeout")
				s.reply(421, "Timeout.")
			}
			return
		}
		s.touch()

		verb, arg := parseCommand(line)
		if verb == "" {
			s.reply(500, "Command not understood.")
			continue
		}

		if !s.dispatch(verb, arg) {
			return
		}
	}
}

// reply sends a single-line response and remembers the code for metrics.
func (s *session) reply(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReply = code
	fmt.Fprintf(s.writer, "%d %s\r\n", code, message)
	if err := s.writer.Flush(); err != nil {
		logger.DebugCtx(s.ctx, "reply write failed", logger.Err(err))
	}
}

// replyLines sends a multi-line response: "code-first", body lines, then the
// terminating "code last".
func (s *session) replyLines(code int, first string, body []string, last string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReply = code
	fmt.Fprintf(s.writer, "%d-%s\r\n", code, first)
	for _, l := range body {
		fmt.Fprintf(s.writer, " %s\r\n", l)
	}
	fmt.Fprintf(s.writer, "%d %s\r\n", code, last)
	if err := s.writer.Flush(); err != nil {
		logger.DebugCtx(s.ctx, "reply write failed", logger.Err(err))
	}
}

func (s *session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *session) idleSince() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// stop makes the session terminate: it closes the control connection and
// tears down the data side, so a goroutine blocked on either socket returns.
// Safe to call from other goroutines; the mutexes keep it from racing an
// AUTH TLS connection swap or a data channel being established.
func (s *session) stop() {
	if s.active.CompareAndSwap(true, false) {
		s.closeDataSetup()
		s.mu.Lock()
		s.conn.Close()
		s.mu.Unlock()
	}
}

func (s *session) close() {
	s.active.Store(false)
	s.closeDataSetup()
	s.mu.Lock()
	s.conn.Close()
	s.mu.Unlock()

	s.server.supervisor.remove(s.id)
	s.server.limiter.Forget(s.id)
	metrics.ConnectionClosed(s.server.metrics, time.Since(s.startTime))

	logger.InfoCtx(s.ctx, "session closed",
		logger.DurationMs(logger.Duration(s.startTime)))
}

// setUser installs the authenticated identity and its sandbox.
func (s *session) setUser(u *identity.User, box *sandbox.Sandbox) {
	s.user = u
	s.box = box
	s.cwd = box.Home()
	s.stage = stageAuthenticated
	s.pendingUser = ""

	lc := logger.NewLogContext(s.id, s.remoteIP).WithUsername(u.Username)
	s.ctx = logger.WithContext(context.Background(), lc)
}

// can reports whether the logged-in user holds the permission. An empty
// permission set grants everything.
func (s *session) can(p identity.Permission) bool {
	return s.user != nil && s.user.Can(p)
}
