package ftp

import (
	"os"
	"strings"

	"github.com/marmos91/ftpd/internal/adapter/ftp/sandbox"
	"github.com/marmos91/ftpd/internal/logger"
	"github.com/marmos91/ftpd/pkg/identity"
	"github.com/marmos91/ftpd/pkg/metrics"
)

func (s *session) handleUSER(arg string) bool {
	if arg == "" {
		s.reply(501, "Syntax error in parameters.")
		return true
	}

	// USER always restarts the login sequence, even mid-session.
	s.user = nil
	s.box = nil
	s.pendingUser = arg
	s.stage = stageAwaitingPass

	if identity.IsAnonymousUsername(arg) && s.server.opts.AllowAnonymous {
		s.reply(331, "Anonymous login ok, send your email address as password.")
		return true
	}
	s.reply(331, "Password required.")
	return true
}

func (s *session) handlePASS(arg string) bool {
	if s.stage != stageAwaitingPass {
		s.reply(503, "Login with USER first.")
		return true
	}

	if identity.IsAnonymousUsername(s.pendingUser) {
		if !s.server.opts.AllowAnonymous {
			s.failLogin("anonymous", identity.ErrInvalidCredentials)
			return true
		}
		u := identity.AnonymousUser(s.server.opts.AnonymousRoot)
		box, err := sandbox.New(u.HomeDir)
		if err != nil {
			logger.ErrorCtx(s.ctx, "anonymous root unavailable", logger.Err(err), logger.Path(u.HomeDir))
			s.failLogin("anonymous", err)
			return true
		}
		s.setUser(u, box)
		metrics.RecordLogin(s.server.metrics, "anonymous", nil)
		logger.InfoCtx(s.ctx, "anonymous login")
		s.reply(230, "Anonymous login ok.")
		return true
	}

	u, err := s.server.directory.Authenticate(s.pendingUser, arg)
	if err != nil {
		logger.WarnCtx(s.ctx, "login failed",
			logger.Username(s.pendingUser), logger.Err(err))
		s.failLogin("password", err)
		return true
	}

	home := u.HomeDir
	if home == "" {
		home = s.server.opts.RootDir
	}
	box, err := sandbox.New(home)
	if err != nil {
		logger.ErrorCtx(s.ctx, "home directory unavailable",
			logger.Username(u.Username), logger.Path(home), logger.Err(err))
		s.failLogin("password", err)
		return true
	}

	s.setUser(u, box)
	metrics.RecordLogin(s.server.metrics, "password", nil)
	logger.InfoCtx(s.ctx, "user logged in")
	s.reply(230, "User logged in.")
	return true
}

func (s *session) failLogin(method string, err error) {
	metrics.RecordLogin(s.server.metrics, method, err)
	s.stage = stageAwaitingUser
	s.pendingUser = ""
	s.reply(530, "Login incorrect.")
}

func (s *session) handleQUIT(string) bool {
	s.reply(221, "Goodbye.")
	return false
}

func (s *session) handleNOOP(string) bool {
	s.reply(200, "OK.")
	return true
}

func (s *session) handleSYST(string) bool {
	s.reply(215, "UNIX Type: L8")
	return true
}

func (s *session) handleFEAT(string) bool {
	s.replyLines(211, "Features:", []string{
		"AUTH TLS",
		"PBSZ",
		"PROT",
		"SIZE",
		"REST STREAM",
		"APPE",
	}, "End")
	return true
}

func (s *session) handleTYPE(arg string) bool {
	switch strings.ToUpper(arg) {
	case "A", "A N":
		s.ttype = typeASCII
		s.reply(200, "Type set to A.")
	case "I", "L 8":
		s.ttype = typeImage
		s.reply(200, "Type set to I.")
	default:
		s.reply(504, "Type not supported.")
	}
	return true
}

func (s *session) handleMODE(arg string) bool {
	if strings.EqualFold(arg, "S") {
		s.reply(200, "Mode set to S.")
	} else {
		s.reply(504, "Only stream mode is supported.")
	}
	return true
}

// quoteWirePath renders a path for 257 replies, doubling embedded quotes
// per RFC 959.
func quoteWirePath(p string) string {
	return `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
}

func (s *session) handlePWD(string) bool {
	s.reply(257, quoteWirePath(s.box.WirePath(s.cwd))+" is the current directory.")
	return true
}

func (s *session) handleCWD(arg string) bool {
	return s.changeDir(arg)
}

func (s *session) handleCDUP(string) bool {
	return s.changeDir("..")
}

func (s *session) changeDir(arg string) bool {
	target, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}

	info, err := os.Stat(target)
	if err != nil {
		s.replyFSError(err)
		return true
	}
	if !info.IsDir() {
		s.reply(550, "Not a directory.")
		return true
	}

	s.cwd = target
	s.reply(250, "Directory changed.")
	return true
}
