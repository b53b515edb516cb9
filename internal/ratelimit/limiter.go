// Package ratelimit implements a fixed-window request limiter keyed by
// caller-supplied identifiers. One Limiter instance guards one endpoint
// class (login, registration, upload, generic API), each with its own
// threshold and window.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

type entry struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Limiter counts requests per identifier within a fixed reset window. A burst
// at the end of one window followed by another at the start of the next is
// allowed: this is the documented trade-off, not a sliding log. Entries are
// owned exclusively by the limiter; the sweeper must be started explicitly.
type Limiter struct {
	max    int
	window time.Duration
	shards [shardCount]*shard

	now      func() time.Time
	onReject func()

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New constructs a Limiter allowing max requests per window. The background
// sweeper is not started; call StartSweeper for long-lived limiters.
func New(max int, window time.Duration) *Limiter {
	l := &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return l
}

// WithNow overrides the clock. Intended for tests.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// WithOnReject registers an observer called once per rejected request.
func (l *Limiter) WithOnReject(f func()) *Limiter {
	l.onReject = f
	return l
}

// Max returns the configured per-window request budget.
func (l *Limiter) Max() int { return l.max }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Allow records a request for identifier and reports whether it is within
// the window budget. Rejections do not mutate the entry: hammering a blocked
// identifier neither extends nor resets its window.
func (l *Limiter) Allow(identifier string) bool {
	now := l.now()
	s := l.shardFor(identifier)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]
	if !ok || now.After(e.resetAt) {
		s.entries[identifier] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// Remaining reports how many requests identifier has left in the current
// window, or the full budget when no live entry exists.
func (l *Limiter) Remaining(identifier string) int {
	now := l.now()
	s := l.shardFor(identifier)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]
	if !ok || now.After(e.resetAt) {
		return l.max
	}
	if remaining := l.max - e.count; remaining > 0 {
		return remaining
	}
	return 0
}

// ResetTime reports when identifier's current window expires, or now+window
// when no live entry exists.
func (l *Limiter) ResetTime(identifier string) time.Time {
	now := l.now()
	s := l.shardFor(identifier)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]
	if !ok || now.After(e.resetAt) {
		return now.Add(l.window)
	}
	return e.resetAt
}

// StartSweeper launches the periodic cleanup of expired entries. It is an
// explicit lifecycle step so tests and short-lived callers can skip it.
// Calling it twice without StopSweeper is a no-op.
func (l *Limiter) StartSweeper(interval time.Duration) {
	l.sweepMu.Lock()
	defer l.sweepMu.Unlock()
	if l.sweepStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	l.sweepStop = stop
	l.sweepDone = done
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

// StopSweeper halts the background cleanup and waits for it to exit.
func (l *Limiter) StopSweeper() {
	l.sweepMu.Lock()
	stop, done := l.sweepStop, l.sweepDone
	l.sweepStop, l.sweepDone = nil, nil
	l.sweepMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Sweep removes entries whose window has expired. Deletion takes the same
// per-shard lock as Allow, so an in-flight request either sees the entry
// before removal or recreates it afresh; never a half state.
func (l *Limiter) Sweep() {
	now := l.now()
	for _, s := range l.shards {
		s.mu.Lock()
		for id, e := range s.entries {
			if now.After(e.resetAt) {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()
	}
}

// Len reports the number of live entries across all shards.
func (l *Limiter) Len() int {
	total := 0
	for _, s := range l.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

func (l *Limiter) shardFor(identifier string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return l.shards[h.Sum32()%shardCount]
}
