package ftp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/ftpd/internal/logger"
	"github.com/marmos91/ftpd/pkg/identity"
	"github.com/marmos91/ftpd/pkg/metrics"
)

func (s *session) handlePASV(string) bool {
	host, err := s.passiveHost()
	if err != nil {
		logger.WarnCtx(s.ctx, "passive mode unavailable", logger.Err(err))
		s.reply(425, "Can't open passive connection.")
		return true
	}

	port, err := s.setupPassive()
	if err != nil {
		logger.WarnCtx(s.ctx, "passive listen failed", logger.Err(err))
		s.reply(425, "Can't open passive connection.")
		return true
	}

	s.reply(227, fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d).",
		host[0], host[1], host[2], host[3], port/256, port%256))
	return true
}

func (s *session) handlePORT(arg string) bool {
	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		s.reply(501, "Syntax error in parameters.")
		return true
	}

	nums := make([]int, 6)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			s.reply(501, "Syntax error in parameters.")
			return true
		}
		nums[i] = n
	}

	port := nums[4]*256 + nums[5]
	if port < 1024 || port > 65535 {
		s.reply(501, "Bad port number.")
		return true
	}

	host := fmt.Sprintf("%d.%d.%d.%d", nums[0], nums[1], nums[2], nums[3])
	s.setupActive(host, port)
	s.reply(200, "PORT command successful.")
	return true
}

func (s *session) handleREST(arg string) bool {
	offset, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || offset < 0 {
		s.reply(501, "Invalid restart offset.")
		return true
	}
	s.restOffset = offset
	s.reply(350, fmt.Sprintf("Restarting at %d. Send STOR or RETR.", offset))
	return true
}

func (s *session) handleRETR(arg string) bool {
	// The restart offset applies to this transfer only, success or not.
	offset := s.restOffset
	s.restOffset = 0

	if !s.can(identity.PermDownload) {
		s.reply(550, "Permission denied.")
		return true
	}

	path, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		s.replyFSError(err)
		return true
	}
	defer f.Close()

	if info, err := f.Stat(); err != nil || info.IsDir() {
		s.reply(550, "Not a plain file.")
		return true
	}
	if offset > 0 {
		if _, err := f.Seek(offset, 0); err != nil {
			s.replyFSError(err)
			return true
		}
	}

	if !s.hasDataSetup() {
		s.reply(425, "Use PORT or PASV first.")
		return true
	}
	s.reply(150, "Opening data connection.")

	conn, err := s.obtainData()
	if err != nil {
		logger.WarnCtx(s.ctx, "data connection failed", logger.Err(err))
		s.reply(425, "Can't open data connection.")
		return true
	}

	start := time.Now()
	n, err := s.sendFile(conn, f)
	s.releaseData()
	metrics.ObserveTransfer(s.server.metrics, "download", n, time.Since(start), err)

	if err != nil {
		logger.WarnCtx(s.ctx, "download aborted",
			logger.Path(arg), logger.Bytes(n), logger.Err(err))
		s.reply(426, "Transfer aborted.")
		return true
	}
	logger.InfoCtx(s.ctx, "download complete",
		logger.Path(arg), logger.Bytes(n),
		logger.DurationMs(logger.Duration(start)))
	s.reply(226, "Transfer complete.")
	return true
}

func (s *session) handleSTOR(arg string) bool {
	return s.receiveFile(arg, false)
}

func (s *session) handleAPPE(arg string) bool {
	return s.receiveFile(arg, true)
}

func (s *session) receiveFile(arg string, appendMode bool) bool {
	offset := s.restOffset
	s.restOffset = 0

	perm := identity.PermUpload
	if appendMode {
		perm = identity.PermAppend
		// APPE always appends; a pending restart offset is discarded.
		offset = 0
	}
	if !s.can(perm) {
		s.reply(550, "Permission denied.")
		return true
	}

	path, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}

	flags := os.O_WRONLY | os.O_CREATE
	switch {
	case appendMode:
		flags |= os.O_APPEND
	case offset == 0:
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		s.replyFSError(err)
		return true
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, 0); err != nil {
			s.replyFSError(err)
			return true
		}
	}

	if !s.hasDataSetup() {
		s.reply(425, "Use PORT or PASV first.")
		return true
	}
	s.reply(150, "Opening data connection.")

	conn, err := s.obtainData()
	if err != nil {
		logger.WarnCtx(s.ctx, "data connection failed", logger.Err(err))
		s.reply(425, "Can't open data connection.")
		return true
	}

	start := time.Now()
	n, err := s.recvFile(conn, f)
	s.releaseData()
	metrics.ObserveTransfer(s.server.metrics, "upload", n, time.Since(start), err)

	if err != nil {
		// Whatever made it to disk stays there.
		logger.WarnCtx(s.ctx, "upload aborted",
			logger.Path(arg), logger.Bytes(n), logger.Err(err))
		s.reply(426, "Transfer aborted.")
		return true
	}
	logger.InfoCtx(s.ctx, "upload complete",
		logger.Path(arg), logger.Bytes(n),
		logger.DurationMs(logger.Duration(start)))
	s.reply(226, "Transfer complete.")
	return true
}
