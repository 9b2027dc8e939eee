// Package ratelimit implements sliding-window rate limiting for control
// connections and commands.
//
// Two limits are tracked: new connections per IP per window, and commands per
// session per window. A zero limit disables the corresponding check.
package ratelimit

import (
	"sync"
	"time"
)

// Config holds the limiter settings.
type Config struct {
	// MaxConnectionsPerMinute caps new control connections per client IP
	// within Window. Zero disables the check.
	MaxConnectionsPerMinute int

	// MaxCommandsPerMinute caps commands per session within Window.
	// Zero disables the check.
	MaxCommandsPerMinute int

	// Window is the sliding window size. Defaults to one minute.
	Window time.Duration
}

// Limiter tracks per-key event timestamps within a sliding window.
// All methods are safe for concurrent use.
type Limiter struct {
	cfg Config

	mu          sync.Mutex
	connections map[string][]time.Time
	commands    map[string][]time.Time
	now         func() time.Time
}

// New creates a Limiter with the given configuration.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		cfg:         cfg,
		connections: make(map[string][]time.Time),
		commands:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// AllowConnection records a connection attempt from ip and reports whether it
// is within the configured rate.
func (l *Limiter) AllowConnection(ip string) bool {
	if l == nil || l.cfg.MaxConnectionsPerMinute <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allow(l.connections, ip, l.cfg.MaxConnectionsPerMinute)
}

// AllowCommand records a command on the given session and reports whether it
// is within the configured rate.
func (l *Limiter) AllowCommand(sessionID string) bool {
	if l == nil || l.cfg.MaxCommandsPerMinute <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allow(l.commands, sessionID, l.cfg.MaxCommandsPerMinute)
}

// Forget drops all state for a key. Called when a session ends so the maps do
// not grow without bound.
func (l *Limiter) Forget(sessionID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.commands, sessionID)
	l.mu.Unlock()
}

func (l *Limiter) allow(m map[string][]time.Time, key string, limit int) bool {
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	events := m[key]
	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		m[key] = kept
		return false
	}
	m[key] = append(kept, now)
	return true
}
