package ftp

import (
	"errors"
	"os"

	"github.com/marmos91/ftpd/internal/adapter/ftp/sandbox"
)

// errNoDataSetup is returned by the data channel broker when neither PASV
// nor PORT preceded a transfer command.
var errNoDataSetup = errors.New("no data connection setup")

// replyFSError maps a filesystem or sandbox error to a permanent-failure
// reply. Host paths and raw error strings stay in the logs; the client only
// sees the standard phrases.
func (s *session) replyFSError(err error) {
	switch {
	case errors.Is(err, sandbox.ErrEscape):
		s.reply(550, "Invalid path.")
	case os.IsNotExist(err):
		s.reply(550, "File not found.")
	case os.IsPermission(err):
		s.reply(550, "Permission denied.")
	case os.IsExist(err):
		s.reply(553, "File already exists.")
	default:
		s.reply(550, "Requested action not taken.")
	}
}
