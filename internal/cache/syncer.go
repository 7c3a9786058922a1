package cache

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sadopc/worklog/internal/record"
)

const (
	// DefaultFreshness is how long fetched data is served without a refetch.
	DefaultFreshness = 30 * time.Second
	// DefaultInterval is the background refresh period.
	DefaultInterval = 30 * time.Second
	// TempPrefix marks placeholder ids of records not yet confirmed.
	TempPrefix = "temp-"

	fetchKey = "timers"
)

// Backend is the persistence contract. It is implemented by the embedded
// store and by the HTTP client.
type Backend interface {
	ListTimers(ctx context.Context) ([]record.Timer, error)
	CreateTimer(ctx context.Context, n record.NewTimer) (*record.Timer, error)
	UpdateTimer(ctx context.Context, id string, u record.TimerUpdate) (*record.Timer, error)
	DeleteTimer(ctx context.Context, id string) error
	DeleteAllTimers(ctx context.Context, secretKey string) error
	GetUser(ctx context.Context) (*record.User, error)
	SetUserSecret(ctx context.Context, secretKey string) error
}

// Notice is a user-visible failure report.
type Notice struct {
	Text string
	Err  error
	At   time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

func WithLogger(l *zap.Logger) Option { return func(s *Syncer) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Syncer) { s.now = now } }

func WithFreshness(d time.Duration) Option { return func(s *Syncer) { s.freshFor = d } }

func WithInterval(d time.Duration) Option { return func(s *Syncer) { s.interval = d } }

// Syncer mediates between UI actions and the Backend with optimistic
// updates, rollback on failure and invalidation-driven refetches.
type Syncer struct {
	backend  Backend
	store    *Store
	log      *zap.Logger
	now      func() time.Time
	freshFor time.Duration
	interval time.Duration

	group    singleflight.Group
	mu       sync.Mutex
	inflight *inflight
	notices  chan Notice

	// saveMu spans the date lookup and the mutation in Save, so a second
	// session never merges into a placeholder whose create is unanswered.
	saveMu sync.Mutex
}

type inflight struct {
	cancel context.CancelFunc
}

// New returns a Syncer over b with an empty cache.
func New(b Backend, opts ...Option) *Syncer {
	s := &Syncer{
		backend:  b,
		log:      zap.NewNop(),
		now:      time.Now,
		freshFor: DefaultFreshness,
		interval: DefaultInterval,
		notices:  make(chan Notice, 16),
	}
	for _, o := range opts {
		o(s)
	}
	s.store = NewStore(s.now)
	return s
}

// Cache exposes the underlying store.
func (s *Syncer) Cache() *Store { return s.store }

// Notices delivers failure reports. Reports are dropped when nobody reads.
func (s *Syncer) Notices() <-chan Notice { return s.notices }

// Cached returns the current cached collection without fetching.
func (s *Syncer) Cached() []record.Timer { return s.store.Snapshot() }

// Timers serves the cache when it is fresh and fetches otherwise.
func (s *Syncer) Timers(ctx context.Context) ([]record.Timer, error) {
	if s.store.Fresh(s.freshFor) {
		return s.store.Snapshot(), nil
	}
	return s.fetch(ctx)
}

// Refresh fetches regardless of freshness.
func (s *Syncer) Refresh(ctx context.Context) ([]record.Timer, error) {
	return s.fetch(ctx)
}

func (s *Syncer) fetch(ctx context.Context) ([]record.Timer, error) {
	v, err, shared := s.group.Do(fetchKey, func() (any, error) {
		gen := s.store.Generation()
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f := &inflight{cancel: cancel}
		s.mu.Lock()
		s.inflight = f
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			if s.inflight == f {
				s.inflight = nil
			}
			s.mu.Unlock()
			cancel()
		}()

		start := s.now()
		timers, err := s.backend.ListTimers(fctx)
		if fctx.Err() != nil && ctx.Err() == nil {
			// Superseded by a mutation; its optimistic state wins.
			s.log.Debug("fetch superseded", zap.Error(err))
			return s.store.Snapshot(), nil
		}
		if err != nil {
			return nil, err
		}
		if !s.store.Replace(timers, gen) {
			s.log.Debug("discarding stale fetch", zap.Int("timers", len(timers)))
			return s.store.Snapshot(), nil
		}
		s.log.Debug("fetched timers",
			zap.Int("timers", len(timers)),
			zap.Duration("took", s.now().Sub(start)))
		return timers, nil
	})
	if err != nil {
		s.log.Warn("fetch timers failed", zap.Error(err))
		return nil, err
	}
	timers := v.([]record.Timer)
	if shared {
		timers = slices.Clone(timers)
	}
	return timers, nil
}

// cancelRefetch stops any in-flight fetch so it cannot clobber an
// optimistic write, and lets the next read start a new one.
func (s *Syncer) cancelRefetch() {
	s.mu.Lock()
	if s.inflight != nil {
		s.inflight.cancel()
		s.inflight = nil
	}
	s.mu.Unlock()
	s.group.Forget(fetchKey)
}

func (s *Syncer) notify(text string, err error) {
	n := Notice{Text: text, Err: err, At: s.now()}
	select {
	case s.notices <- n:
	default:
		s.log.Warn("notice dropped", zap.String("text", text))
	}
}

// Create adds a timer. A placeholder with a temporary id is shown until
// the backend answers.
func (s *Syncer) Create(ctx context.Context, n record.NewTimer) (*record.Timer, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	s.cancelRefetch()

	now := s.now()
	placeholder := record.Timer{
		ID:        TempPrefix + uuid.NewString(),
		Title:     n.Title,
		Duration:  n.Duration,
		Date:      n.Date,
		DayOfWeek: n.DayOfWeek,
		Completed: n.Completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx := s.store.Begin(func(ts []record.Timer) []record.Timer {
		return append([]record.Timer{placeholder}, ts...)
	})

	t, err := s.backend.CreateTimer(ctx, n)
	if err != nil {
		tx.Rollback()
		s.log.Error("create timer failed", zap.String("date", n.Date), zap.Error(err))
		s.notify("Failed to save timer", err)
		return nil, err
	}
	tx.Commit()
	s.log.Info("timer created", zap.String("id", t.ID), zap.String("date", t.Date))
	return t, nil
}

// Update changes the timer with id.
func (s *Syncer) Update(ctx context.Context, id string, u record.TimerUpdate) (*record.Timer, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	s.cancelRefetch()

	tx := s.store.Begin(func(ts []record.Timer) []record.Timer {
		for i := range ts {
			if ts[i].ID == id {
				u.Apply(&ts[i])
				ts[i].UpdatedAt = s.now()
			}
		}
		return ts
	})

	t, err := s.backend.UpdateTimer(ctx, id, u)
	if err != nil {
		tx.Rollback()
		s.log.Error("update timer failed", zap.String("id", id), zap.Error(err))
		s.notify("Failed to update timer", err)
		return nil, err
	}
	tx.Commit()
	s.log.Info("timer updated", zap.String("id", id))
	return t, nil
}

// Delete removes the timer with id.
func (s *Syncer) Delete(ctx context.Context, id string) error {
	s.cancelRefetch()

	tx := s.store.Begin(func(ts []record.Timer) []record.Timer {
		return slices.DeleteFunc(ts, func(t record.Timer) bool { return t.ID == id })
	})

	if err := s.backend.DeleteTimer(ctx, id); err != nil {
		tx.Rollback()
		s.log.Error("delete timer failed", zap.String("id", id), zap.Error(err))
		s.notify("Failed to delete timer", err)
		return err
	}
	tx.Commit()
	s.log.Info("timer deleted", zap.String("id", id))
	return nil
}

// DeleteAll wipes every timer. The backend verifies secretKey.
func (s *Syncer) DeleteAll(ctx context.Context, secretKey string) error {
	s.cancelRefetch()

	tx := s.store.Begin(func([]record.Timer) []record.Timer { return []record.Timer{} })

	if err := s.backend.DeleteAllTimers(ctx, secretKey); err != nil {
		tx.Rollback()
		s.log.Error("delete all timers failed", zap.Error(err))
		if errors.Is(err, record.ErrSecretMismatch) {
			s.notify("Secret key rejected", err)
		} else {
			s.notify("Failed to delete all timers", err)
		}
		return err
	}
	tx.Commit()
	s.log.Info("all timers deleted")
	return nil
}

// Save records a finished session. When a timer already exists for the
// same date its duration grows by n.Duration; otherwise a new one is created.
func (s *Syncer) Save(ctx context.Context, n record.NewTimer) (*record.Timer, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	timers, err := s.Timers(ctx)
	if err != nil {
		s.notify("Failed to load timers", err)
		return nil, err
	}
	if existing, ok := record.FindByDate(timers, n.Date); ok {
		total := existing.Duration + n.Duration
		return s.Update(ctx, existing.ID, record.TimerUpdate{Duration: &total})
	}
	return s.Create(ctx, n)
}

// User returns the configured user, or nil.
func (s *Syncer) User(ctx context.Context) (*record.User, error) {
	return s.backend.GetUser(ctx)
}

// SetSecret stores a new secret key on the backend.
func (s *Syncer) SetSecret(ctx context.Context, key string) error {
	if err := record.ValidateSecret(key); err != nil {
		return err
	}
	if err := s.backend.SetUserSecret(ctx, key); err != nil {
		s.notify("Failed to save secret key", err)
		return err
	}
	return nil
}

// Run refreshes the cache every interval until ctx is cancelled. A tick is
// skipped when a fetch already completed within the interval.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.store.FetchedWithin(s.interval) {
				continue
			}
			if _, err := s.fetch(ctx); err != nil && ctx.Err() == nil {
				s.notify("Background refresh failed", err)
			}
		}
	}
}
