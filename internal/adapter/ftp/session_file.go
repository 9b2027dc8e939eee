package ftp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/ftpd/internal/logger"
	"github.com/marmos91/ftpd/pkg/identity"
)

func (s *session) handleLIST(arg string) bool {
	return s.sendListing(arg, formatListEntry)
}

func (s *session) handleNLST(arg string) bool {
	return s.sendListing(arg, func(name string, _ os.FileInfo, _ time.Time) string {
		return name + "\r\n"
	})
}

func (s *session) sendListing(arg string, format func(string, os.FileInfo, time.Time) string) bool {
	if !s.can(identity.PermList) {
		s.reply(550, "Permission denied.")
		return true
	}

	// Clients routinely pass ls flags ("-la"); they carry no meaning here.
	arg = stripListFlags(arg)

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

	now := time.Now()
	var sb strings.Builder
	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			s.replyFSError(err)
			return true
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			ei, err := e.Info()
			if err != nil {
				continue
			}
			sb.WriteString(format(e.Name(), ei, now))
		}
	} else {
		sb.WriteString(format(filepath.Base(target), info, now))
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

	_, werr := conn.Write([]byte(sb.String()))
	s.releaseData()
	if werr != nil {
		s.reply(426, "Transfer aborted.")
		return true
	}
	s.reply(226, "Transfer complete.")
	return true
}

func stripListFlags(arg string) string {
	fields := strings.Fields(arg)
	kept := fields[:0]
	for _, f := range fields {
		if !strings.HasPrefix(f, "-") {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// formatListEntry renders one ls -l style line. Directories report size 0;
// timestamps older than six months (or in the future) show the year instead
// of the time of day.
func formatListEntry(name string, info os.FileInfo, now time.Time) string {
	mode := info.Mode()
	typeChar := byte('-')
	switch {
	case mode.IsDir():
		typeChar = 'd'
	case mode&os.ModeSymlink != 0:
		typeChar = 'l'
	}
	perms := mode.Perm().String()[1:]

	size := info.Size()
	if mode.IsDir() {
		size = 0
	}

	mtime := info.ModTime()
	var stamp string
	if mtime.Before(now.AddDate(0, -6, 0)) || mtime.After(now) {
		stamp = mtime.Format("Jan 02  2006")
	} else {
		stamp = mtime.Format("Jan 02 15:04")
	}

	return fmt.Sprintf("%c%s 1 ftp ftp %12d %s %s\r\n",
		typeChar, perms, size, stamp, name)
}

func (s *session) handleDELE(arg string) bool {
	if !s.can(identity.PermDelete) {
		s.reply(550, "Permission denied.")
		return true
	}

	path, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}

	info, err := os.Stat(path)
	if err != nil {
		s.replyFSError(err)
		return true
	}
	if info.IsDir() {
		s.reply(550, "Not a plain file.")
		return true
	}

	if err := os.Remove(path); err != nil {
		s.replyFSError(err)
		return true
	}
	logger.InfoCtx(s.ctx, "file deleted", logger.Path(arg))
	s.reply(250, "File deleted.")
	return true
}

func (s *session) handleMKD(arg string) bool {
	if !s.can(identity.PermMkdir) {
		s.reply(550, "Permission denied.")
		return true
	}

	path, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}

	if err := os.Mkdir(path, 0o755); err != nil {
		s.replyFSError(err)
		return true
	}
	s.reply(257, quoteWirePath(s.box.WirePath(path))+" created.")
	return true
}

func (s *session) handleRMD(arg string) bool {
	if !s.can(identity.PermRmdir) {
		s.reply(550, "Permission denied.")
		return true
	}

	path, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}

	info, err := os.Stat(path)
	if err != nil {
		s.replyFSError(err)
		return true
	}
	if !info.IsDir() {
		s.reply(550, "Not a directory.")
		return true
	}

	if err := os.Remove(path); err != nil {
		s.replyFSError(err)
		return true
	}
	s.reply(250, "Directory removed.")
	return true
}

func (s *session) handleRNFR(arg string) bool {
	if !s.can(identity.PermRename) {
		s.reply(550, "Permission denied.")
		return true
	}

	path, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}
	if _, err := os.Stat(path); err != nil {
		s.replyFSError(err)
		return true
	}

	s.renameFrom = path
	s.reply(350, "Ready for RNTO.")
	return true
}

func (s *session) handleRNTO(arg string) bool {
	from := s.renameFrom
	s.renameFrom = ""
	if from == "" {
		s.reply(503, "RNFR required first.")
		return true
	}
	if !s.can(identity.PermRename) {
		s.reply(550, "Permission denied.")
		return true
	}

	to, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}

	if err := os.Rename(from, to); err != nil {
		s.replyFSError(err)
		return true
	}
	logger.InfoCtx(s.ctx, "renamed", logger.Path(arg))
	s.reply(250, "Rename successful.")
	return true
}

func (s *session) handleSIZE(arg string) bool {
	if s.ttype == typeASCII {
		s.reply(550, "SIZE not allowed in ASCII mode.")
		return true
	}

	path, err := s.box.Resolve(s.cwd, arg)
	if err != nil {
		s.replyFSError(err)
		return true
	}

	info, err := os.Stat(path)
	if err != nil {
		s.replyFSError(err)
		return true
	}
	if info.IsDir() {
		s.reply(550, "Not a plain file.")
		return true
	}

	s.reply(213, strconv.FormatInt(info.Size(), 10))
	return true
}
