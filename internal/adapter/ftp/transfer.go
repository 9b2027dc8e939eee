package ftp

import (
	"io"
	"net"
	"os"
)

// transferBufferSize is the chunk size for data channel copies.
const transferBufferSize = 8 * 1024

// sendFile streams f to the data connection, honoring the session's
// representation type. Returns the number of bytes written to the wire.
func (s *session) sendFile(conn net.Conn, f *os.File) (int64, error) {
	var src io.Reader = f
	if s.ttype == typeASCII {
		src = newASCIIOutReader(f)
	}
	buf := make([]byte, transferBufferSize)
	return copyBuffer(conn, src, buf)
}

// recvFile streams the data connection into f, honoring the session's
// representation type. Returns the number of bytes written to the file.
func (s *session) recvFile(conn net.Conn, f *os.File) (int64, error) {
	var src io.Reader = conn
	if s.ttype == typeASCII {
		src = newASCIIInReader(conn)
	}
	buf := make([]byte, transferBufferSize)
	return copyBuffer(f, src, buf)
}

// copyBuffer is io.CopyBuffer without the WriterTo/ReaderFrom fast paths,
// so every transfer moves through the fixed-size buffer.
func copyBuffer(dst io.Writer, src io.Reader, buf []byte) (written int64, err error) {
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw < nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return written, nil
			}
			return written, rerr
		}
	}
}
