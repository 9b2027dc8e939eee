package ftp

import (
	"bufio"
	"strings"
)

// maxLineLength is the longest control line accepted. Longer lines are
// truncated and the excess discarded; the truncated line is still dispatched.
const maxLineLength = 1024

// parseCommand splits a control line into an uppercased verb and its
// argument. The argument is everything after the first run of whitespace,
// with surrounding whitespace stripped.
func parseCommand(line string) (verb, arg string) {
	line = strings.Trim(line, " \t")
	if line == "" {
		return "", ""
	}

	idx := strings.IndexAny(line, " \t")
	if idx == -1 {
		return strings.ToUpper(line), ""
	}

	verb = strings.ToUpper(line[:idx])
	arg = strings.Trim(line[idx:], " \t")
	return verb, arg
}

// readLine reads one control line from r, accepting CRLF or a lone LF as the
// terminator. Lines beyond maxLineLength bytes are truncated; the rest of
// the oversized line is consumed and dropped so the reader stays in sync.
func readLine(r *bufio.Reader) (string, error) {
	var line []byte
	truncated := false
	for {
		b, err := r.ReadByte()
		if err != nil {
			if len(line) > 0 {
				return finishLine(line), err
			}
			return "", err
		}
		if b == '\n' {
			return finishLine(line), nil
		}
		if truncated {
			continue
		}
		if len(line) >= maxLineLength {
			truncated = true
			continue
		}
		line = append(line, b)
	}
}

func finishLine(line []byte) string {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return string(line)
}
