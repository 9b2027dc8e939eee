package ftp

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		verb string
		arg  string
	}{
		{"USER alice", "USER", "alice"},
		{"user alice", "USER", "alice"},
		{"NOOP", "NOOP", ""},
		{"  QUIT  ", "QUIT", ""},
		{"STOR  spaced  name.txt", "STOR", "spaced  name.txt"},
		{"TYPE\tI", "TYPE", "I"},
		{"", "", ""},
	}
	for _, tc := range tests {
		verb, arg := parseCommand(tc.line)
		assert.Equal(t, tc.verb, verb, "line %q", tc.line)
		assert.Equal(t, tc.arg, arg, "line %q", tc.line)
	}
}

func TestReadLineTerminators(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("USER alice\r\nNOOP\nQUIT\r\n"))

	line, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "USER alice", line)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "NOOP", line)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "QUIT", line)

	_, err = readLine(r)
	assert.Equal(t, io.EOF, err)
}

func TestReadLineTruncatesAtLimit(t *testing.T) {
	long := strings.Repeat("a", maxLineLength+500)
	r := bufio.NewReader(strings.NewReader("STOR " + long + "\r\nNOOP\r\n"))

	line, err := readLine(r)
	require.NoError(t, err)
	assert.Len(t, line, maxLineLength)
	assert.Equal(t, "STOR "+long[:maxLineLength-5], line)

	// The reader stays in sync with the next command.
	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "NOOP", line)
}

func TestReadLineExactLimit(t *testing.T) {
	exact := strings.Repeat("b", maxLineLength)
	r := bufio.NewReader(strings.NewReader(exact + "\r\n"))

	line, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, exact, line)
}

func TestTelnetReaderStripsNegotiation(t *testing.T) {
	// IAC DO <opt> and IAC WILL <opt> around real data, plus an escaped
	// 0xFF data byte.
	raw := []byte{telnetIAC, telnetDO, 0x01, 'N', 'O', telnetIAC, telnetIAC, 'O', 'P', telnetIAC, telnetWILL, 0x02, '\r', '\n'}
	tr := newTelnetReader(strings.NewReader(string(raw)))

	out, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, []byte{'N', 'O', 0xFF, 'O', 'P', '\r', '\n'}, out)
}
