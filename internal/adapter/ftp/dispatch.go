package ftp

import (
	"github.com/marmos91/ftpd/internal/logger"
	"github.com/marmos91/ftpd/pkg/metrics"
)

// handler processes one command. Returning false ends the session.
type handler func(s *session, arg string) bool

var handlers = map[string]handler{
	"USER": (*session).handleUSER,
	"PASS": (*session).handlePASS,
	"QUIT": (*session).handleQUIT,
	"NOOP": (*session).handleNOOP,
	"SYST": (*session).handleSYST,
	"FEAT": (*session).handleFEAT,
	"TYPE": (*session).handleTYPE,
	"MODE": (*session).handleMODE,
	"PWD":  (*session).handlePWD,
	"CWD":  (*session).handleCWD,
	"CDUP": (*session).handleCDUP,
	"LIST": (*session).handleLIST,
	"NLST": (*session).handleNLST,
	"RETR": (*session).handleRETR,
	"STOR": (*session).handleSTOR,
	"APPE": (*session).handleAPPE,
	"DELE": (*session).handleDELE,
	"MKD":  (*session).handleMKD,
	"RMD":  (*session).handleRMD,
	"RNFR": (*session).handleRNFR,
	"RNTO": (*session).handleRNTO,
	"SIZE": (*session).handleSIZE,
	"REST": (*session).handleREST,
	"PASV": (*session).handlePASV,
	"PORT": (*session).handlePORT,
	"AUTH": (*session).handleAUTH,
	"PBSZ": (*session).handlePBSZ,
	"PROT": (*session).handlePROT,
}

// preAuthVerbs may be issued before login completes.
var preAuthVerbs = map[string]bool{
	"USER": true,
	"PASS": true,
	"QUIT": true,
	"NOOP": true,
	"SYST": true,
	"FEAT": true,
	"AUTH": true,
	"PBSZ": true,
	"PROT": true,
}

func (s *session) dispatch(verb, arg string) bool {
	if !s.server.limiter.AllowCommand(s.id) {
		logger.WarnCtx(s.ctx, "command rate limit exceeded", logger.Verb(verb))
		s.reply(421, "Too many commands, closing control connection.")
		return false
	}

	// A pending RNFR survives only an immediately following RNTO.
	if verb != "RNFR" && verb != "RNTO" {
		s.renameFrom = ""
	}

	h, ok := handlers[verb]
	switch {
	case !ok:
		s.reply(502, "Command not implemented.")
	case s.stage != stageAuthenticated && !preAuthVerbs[verb]:
		s.reply(530, "Please login with USER and PASS.")
	default:
		cont := h(s, arg)
		s.recordCommand(verb)
		return cont
	}

	s.recordCommand(verb)
	return true
}

func (s *session) recordCommand(verb string) {
	s.mu.Lock()
	code := s.lastReply
	s.mu.Unlock()
	metrics.RecordCommand(s.server.metrics, verb, code)
	logger.DebugCtx(s.ctx, "command handled", logger.Verb(verb), logger.Reply(code))
}
