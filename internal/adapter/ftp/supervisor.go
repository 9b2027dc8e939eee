package ftp

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/ftpd/internal/logger"
)

// reapInterval is how often the supervisor sweeps for dead or idle sessions.
const reapInterval = 60 * time.Second

// supervisor owns the set of live sessions: admission against the
// concurrency cap, removal, and periodic reaping of sessions whose idle
// timer expired without the read deadline firing. Sessions with a live data
// connection are never reaped as idle; a transfer has no time limit.
type supervisor struct {
	mu       sync.Mutex
	sessions map[string]*session
	max      int

	idleTimeout time.Duration

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newSupervisor(max int, idleTimeout time.Duration) *supervisor {
	return &supervisor{
		sessions:    make(map[string]*session),
		max:         max,
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
}

// admit registers a session unless the concurrency cap is reached.
func (sv *supervisor) admit(s *session) bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.max > 0 && len(sv.sessions) >= sv.max {
		return false
	}
	sv.sessions[s.id] = s
	sv.wg.Add(1)
	return true
}

func (sv *supervisor) remove(id string) {
	sv.mu.Lock()
	_, tracked := sv.sessions[id]
	delete(sv.sessions, id)
	sv.mu.Unlock()
	if tracked {
		sv.wg.Done()
	}
}

func (sv *supervisor) count() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.sessions)
}

// run sweeps until shutdown.
func (sv *supervisor) run() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sv.done:
			return
		case <-ticker.C:
			sv.reap()
		}
	}
}

func (sv *supervisor) reap() {
	cutoff := time.Now().Add(-sv.idleTimeout)

	sv.mu.Lock()
	var stale []*session
	for _, s := range sv.sessions {
		if !s.active.Load() ||
			(!s.transferring.Load() && s.idleSince().Before(cutoff)) {
			stale = append(stale, s)
		}
	}
	sv.mu.Unlock()

	for _, s := range stale {
		logger.Info("reaping session",
			logger.SessionID(s.id), logger.ClientIP(s.remoteIP))
		s.stop()
	}
}

// shutdown stops every session and waits for them to unwind, bounded by ctx.
// Safe to call more than once.
func (sv *supervisor) shutdown(ctx context.Context) error {
	sv.stopOnce.Do(func() { close(sv.done) })

	sv.mu.Lock()
	live := make([]*session, 0, len(sv.sessions))
	for _, s := range sv.sessions {
		live = append(live, s)
	}
	sv.mu.Unlock()

	for _, s := range live {
		s.stop()
	}

	finished := make(chan struct{})
	go func() {
		sv.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
