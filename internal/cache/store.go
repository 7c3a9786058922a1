package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/sadopc/worklog/internal/record"
)

// Store is the client-side cached timer collection. It is the only place
// the cached slice is mutated.
type Store struct {
	mu sync.Mutex

	now       func() time.Time
	timers    []record.Timer
	fetchedAt time.Time
	valid     bool
	gen       uint64 // bumped whenever pending fetch results become stale
	rev       uint64 // bumped whenever the contents change
}

// NewStore returns an empty, invalid store. A nil clock means time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// Snapshot returns a copy of the cached timers.
func (s *Store) Snapshot() []record.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.timers)
}

// Generation identifies the current cache epoch. A fetch must capture it
// before starting and hand it back to Replace.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Revision changes every time the cached contents change.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Replace installs fetched timers and marks the cache fresh. It reports false
// and leaves the cache alone when gen is no longer current.
func (s *Store) Replace(timers []record.Timer, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.timers = slices.Clone(timers)
	s.fetchedAt = s.now()
	s.valid = true
	s.rev++
	return true
}

// Invalidate forces the next read to fetch and discards any pending fetch.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Store) invalidateLocked() {
	s.valid = false
	s.gen++
}

// Fresh reports whether the cache is valid and younger than window.
func (s *Store) Fresh(window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid && s.now().Sub(s.fetchedAt) < window
}

// FetchedWithin reports whether a fetch completed less than d ago,
// regardless of later invalidation.
func (s *Store) FetchedWithin(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < d
}

// Begin snapshots the collection and applies the expected effect of a
// mutation immediately. Pending fetches are discarded.
func (s *Store) Begin(apply func([]record.Timer) []record.Timer) *Txn {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Txn{
		store:    s,
		snapshot: slices.Clone(s.timers),
	}
	s.timers = apply(slices.Clone(s.timers))
	s.gen++
	s.rev++
	return tx
}

// Txn is one optimistic mutation: snapshot, apply, then commit or rollback.
type Txn struct {
	store    *Store
	snapshot []record.Timer
	done     bool
}

// Commit keeps the optimistic state and invalidates the cache so the
// authoritative state is fetched on the next read.
func (t *Txn) Commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	s.invalidateLocked()
}

// Rollback restores the pre-mutation snapshot exactly and invalidates.
func (t *Txn) Rollback() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	s.timers = t.snapshot
	s.rev++
	s.invalidateLocked()
}
