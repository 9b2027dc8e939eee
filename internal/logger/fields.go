package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that control-channel,
// data-channel and transfer events can be correlated in log aggregation.
const (
	// Protocol & operation
	KeyVerb     = "verb"      // FTP verb: RETR, STOR, CWD, PASV, ...
	KeyArg      = "arg"       // Command argument (redacted for PASS)
	KeyReply    = "reply"     // Three-digit reply code sent to the client
	KeyReplyMsg = "reply_msg" // Human-readable reply text

	// File system operations
	KeyPath    = "path"     // Virtual (wire) path as the client sees it
	KeyOldPath = "old_path" // Source path for RNFR/RNTO
	KeyNewPath = "new_path" // Destination path for RNFR/RNTO
	KeySize    = "size"     // File size in bytes

	// Transfers
	KeyBytes        = "bytes"         // Bytes moved on the data channel
	KeyOffset       = "offset"        // REST offset in effect
	KeyTransferType = "transfer_type" // A (ASCII) or I (image)
	KeyDirection    = "direction"     // upload or download

	// Client identification
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port
	KeyUsername   = "username"    // Username from USER / authenticated user

	// Session & connection
	KeySessionID = "session_id" // Opaque session identifier
	KeyDataAddr  = "data_addr"  // Data-channel peer or listener address
	KeyProt      = "prot"       // Data protection level: C or P

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyReason     = "reason"      // Rejection or failure reason
)

// Field constructors for type safety.

// Verb returns a slog.Attr for an FTP verb
func Verb(v string) slog.Attr {
	return slog.String(KeyVerb, v)
}

// Reply returns a slog.Attr for a reply code
func Reply(code int) slog.Attr {
	return slog.Int(KeyReply, code)
}

// Path returns a slog.Attr for a virtual path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Bytes returns a slog.Attr for bytes transferred
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Username returns a slog.Attr for username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// SessionID returns a slog.Attr for session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Reason returns a slog.Attr for a rejection reason
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}
