package ftp

import (
	"bufio"
	"io"
)

// ASCII type transfers translate line endings on the wire: outbound data is
// sent with CRLF endings, inbound CRLF pairs become the host convention
// (LF). No other bytes are touched.

// asciiOutReader wraps a local file for sending: every LF not already
// preceded by CR is expanded to CRLF.
type asciiOutReader struct {
	r         *bufio.Reader
	prevCR    bool
	pendingLF bool
}

func newASCIIOutReader(r io.Reader) *asciiOutReader {
	return &asciiOutReader{r: bufio.NewReader(r)}
}

func (a *asciiOutReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if a.pendingLF {
			p[n] = '\n'
			n++
			a.pendingLF = false
			continue
		}

		b, err := a.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		if b == '\n' && !a.prevCR {
			p[n] = '\r'
			n++
			if n < len(p) {
				p[n] = '\n'
				n++
			} else {
				a.pendingLF = true
			}
			a.prevCR = false
			continue
		}

		a.prevCR = b == '\r'
		p[n] = b
		n++
	}
	return n, nil
}

// asciiInReader wraps the data connection for receiving: CRLF pairs collapse
// to LF, lone CR bytes pass through.
type asciiInReader struct {
	r *bufio.Reader
}

func newASCIIInReader(r io.Reader) *asciiInReader {
	return &asciiInReader{r: bufio.NewReader(r)}
}

func (a *asciiInReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		// Return progress instead of blocking on the network for more.
		if n > 0 && a.r.Buffered() == 0 {
			return n, nil
		}

		b, err := a.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		if b == '\r' {
			next, err := a.r.Peek(1)
			if err == nil && next[0] == '\n' {
				// Drop the CR; the LF is copied on the next pass.
				continue
			}
			// Lone CR (or CR at EOF) is data.
		}

		p[n] = b
		n++
	}
	return n, nil
}
