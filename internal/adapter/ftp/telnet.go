package ftp

import (
	"bufio"
	"io"
)

// Telnet control bytes that may appear on the control channel. RFC 959
// layers FTP over Telnet NVT; some clients send option negotiation before
// commands (notably around ABOR). We strip the negotiation and keep data.
const (
	telnetIAC  = 0xFF // interpret as command
	telnetWILL = 0xFB
	telnetWONT = 0xFC
	telnetDO   = 0xFD
	telnetDONT = 0xFE
)

// telnetReader filters Telnet command sequences out of the control stream.
type telnetReader struct {
	r *bufio.Reader
}

func newTelnetReader(r io.Reader) *telnetReader {
	return &telnetReader{r: bufio.NewReader(r)}
}

// Reset points the reader at a new underlying stream. Used after AUTH TLS
// swaps the control connection.
func (t *telnetReader) Reset(r io.Reader) {
	t.r.Reset(r)
}

func (t *telnetReader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	for n < len(p) {
		// Return buffered progress instead of blocking on the network.
		if n > 0 && t.r.Buffered() == 0 {
			return n, nil
		}

		b, err := t.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return n, err
		}

		if b != telnetIAC {
			p[n] = b
			n++
			continue
		}

		next, err := t.r.ReadByte()
		if err != nil {
			return n, err
		}

		switch next {
		case telnetIAC:
			// Escaped 0xFF data byte.
			p[n] = telnetIAC
			n++
		case telnetWILL, telnetWONT, telnetDO, telnetDONT:
			// Three-byte negotiation: IAC CMD OPT. Swallow the option.
			if _, err := t.r.ReadByte(); err != nil {
				return n, err
			}
		default:
			// Two-byte command, ignored.
		}
	}

	return n, nil
}
