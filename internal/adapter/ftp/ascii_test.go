package ftp

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASCIIOutReader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"no newline", "no newline"},
		{"one\nline\n", "one\r\nline\r\n"},
		{"already\r\ncrlf\r\n", "already\r\ncrlf\r\n"},
		{"mixed\nand\r\nboth\n", "mixed\r\nand\r\nboth\r\n"},
		{"\n", "\r\n"},
		{"lone\rcr", "lone\rcr"},
	}
	for _, tc := range tests {
		out, err := io.ReadAll(newASCIIOutReader(strings.NewReader(tc.in)))
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, string(out), "input %q", tc.in)
	}
}

func TestASCIIOutReaderSmallBuffer(t *testing.T) {
	// A one-byte destination forces the CR and LF of each expansion into
	// separate reads.
	r := newASCIIOutReader(strings.NewReader("a\nb\n"))
	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "a\r\nb\r\n", string(out))
}

func TestASCIIInReader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"one\r\nline\r\n", "one\nline\n"},
		{"bare\nlf\n", "bare\nlf\n"},
		{"lone\rcr", "lone\rcr"},
		{"trailing\r", "trailing\r"},
	}
	for _, tc := range tests {
		out, err := io.ReadAll(newASCIIInReader(strings.NewReader(tc.in)))
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, string(out), "input %q", tc.in)
	}
}

func TestCopyBufferMovesEverything(t *testing.T) {
	payload := strings.Repeat("0123456789abcdef", 4096) // 64 KiB, several buffers
	var sb strings.Builder
	n, err := copyBuffer(&sb, strings.NewReader(payload), make([]byte, transferBufferSize))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, sb.String())
}
