package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds session-scoped logging context
type LogContext struct {
	SessionID string    // Opaque session identifier assigned at accept
	Verb      string    // FTP verb being processed (RETR, STOR, CWD, ...)
	ClientIP  string    // Client IP address (without port)
	Username  string    // Authenticated username, empty before login
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a freshly accepted control connection
func NewLogContext(sessionID, clientIP string) *LogContext {
	return &LogContext{
		SessionID: sessionID,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		SessionID: lc.SessionID,
		Verb:      lc.Verb,
		ClientIP:  lc.ClientIP,
		Username:  lc.Username,
		StartTime: lc.StartTime,
	}
}

// WithVerb returns a copy with the verb set
func (lc *LogContext) WithVerb(verb string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Verb = verb
	}
	return clone
}

// WithUsername returns a copy with the username set
func (lc *LogContext) WithUsername(username string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Username = username
	}
	return clone
}

// DurationMs returns the elapsed time since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
