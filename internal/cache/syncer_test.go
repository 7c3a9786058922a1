package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sadopc/worklog/internal/record"
)

var errTransport = errors.New("connection refused")

// fakeBackend is an in-memory Backend with failure and blocking hooks.
type fakeBackend struct {
	mu     sync.Mutex
	timers []record.Timer
	secret string
	seq    int
	lists  int
	fail   error

	// When gate is set, ListTimers signals started and waits for gate,
	// ignoring ctx, to model a slow response that arrives late.
	gate    chan struct{}
	started chan struct{}

	// createGate does the same for CreateTimer.
	createGate    chan struct{}
	createStarted chan struct{}
}

func (f *fakeBackend) ListTimers(ctx context.Context) ([]record.Timer, error) {
	f.mu.Lock()
	f.lists++
	gate, started := f.gate, f.started
	out := append([]record.Timer(nil), f.timers...)
	f.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		<-gate
	}
	return out, nil
}

func (f *fakeBackend) CreateTimer(ctx context.Context, n record.NewTimer) (*record.Timer, error) {
	f.mu.Lock()
	gate, started := f.createGate, f.createStarted
	f.mu.Unlock()
	if gate != nil {
		started <- struct{}{}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.seq++
	t := record.Timer{
		ID:        fmt.Sprintf("id-%d", f.seq),
		Title:     n.Title,
		Duration:  n.Duration,
		Date:      n.Date,
		DayOfWeek: n.DayOfWeek,
		Completed: n.Completed,
	}
	f.timers = append([]record.Timer{t}, f.timers...)
	return &t, nil
}

func (f *fakeBackend) UpdateTimer(ctx context.Context, id string, u record.TimerUpdate) (*record.Timer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	for i := range f.timers {
		if f.timers[i].ID == id {
			u.Apply(&f.timers[i])
			t := f.timers[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("update timer %s: %w", id, record.ErrNotFound)
}

func (f *fakeBackend) DeleteTimer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	for i := range f.timers {
		if f.timers[i].ID == id {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete timer %s: %w", id, record.ErrNotFound)
}

func (f *fakeBackend) DeleteAllTimers(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if key != f.secret {
		return record.ErrSecretMismatch
	}
	f.timers = nil
	return nil
}

func (f *fakeBackend) GetUser(ctx context.Context) (*record.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.secret == "" {
		return nil, nil
	}
	return &record.User{ID: "u1", HasSecret: true}, nil
}

func (f *fakeBackend) SetUserSecret(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secret = key
	return nil
}

func (f *fakeBackend) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestSyncer(t *testing.T, b *fakeBackend) (*Syncer, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, time.May, 5, 9, 0, 0, 0, time.Local)}
	return New(b, WithClock(clk.Now)), clk
}

func seed(date string, dur int64, id string) record.Timer {
	return record.Timer{ID: id, Title: "Work", Duration: dur, Date: date, DayOfWeek: "Sunday", Completed: true}
}

// ============================================================
// Store and Txn
// ============================================================

func TestTxnRollbackRestoresSnapshot(t *testing.T) {
	s := NewStore(nil)
	require.True(t, s.Replace([]record.Timer{seed("05:05:2024", 10, "a"), seed("04:05:2024", 20, "b")}, s.Generation()))
	before := s.Snapshot()

	tx := s.Begin(func(ts []record.Timer) []record.Timer {
		ts[0].Duration = 999
		return append(ts, seed("03:05:2024", 1, "c"))
	})
	assert.Len(t, s.Snapshot(), 3)

	tx.Rollback()
	assert.Equal(t, before, s.Snapshot())
	assert.False(t, s.Fresh(time.Hour), "rollback must invalidate")
}

func TestTxnCommitInvalidates(t *testing.T) {
	s := NewStore(nil)
	s.Replace(nil, s.Generation())
	require.True(t, s.Fresh(time.Hour))

	tx := s.Begin(func(ts []record.Timer) []record.Timer { return append(ts, seed("05:05:2024", 1, "x")) })
	tx.Commit()
	tx.Rollback() // no-op after commit

	assert.False(t, s.Fresh(time.Hour))
	assert.Len(t, s.Snapshot(), 1)
}

func TestReplaceRejectsStaleGeneration(t *testing.T) {
	s := NewStore(nil)
	gen := s.Generation()
	s.Begin(func(ts []record.Timer) []record.Timer { return ts }).Commit()
	assert.False(t, s.Replace([]record.Timer{seed("05:05:2024", 1, "a")}, gen))
	assert.Empty(t, s.Snapshot())
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewStore(nil)
	s.Replace([]record.Timer{seed("05:05:2024", 1, "a")}, s.Generation())
	snap := s.Snapshot()
	snap[0].Duration = 100
	assert.Equal(t, int64(1), s.Snapshot()[0].Duration)
}

// ============================================================
// Reads
// ============================================================

func TestTimersServedFromFreshCache(t *testing.T) {
	b := &fakeBackend{timers: []record.Timer{seed("05:05:2024", 60, "a")}}
	s, clk := newTestSyncer(t, b)
	ctx := context.Background()

	_, err := s.Timers(ctx)
	require.NoError(t, err)
	_, err = s.Timers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.listCount(), "second read should hit the cache")

	clk.Advance(DefaultFreshness)
	_, err = s.Timers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, b.listCount(), "stale cache should refetch")
}

func TestConcurrentFetchesCollapse(t *testing.T) {
	b := &fakeBackend{
		timers:  []record.Timer{seed("05:05:2024", 60, "a")},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s, _ := newTestSyncer(t, b)

	var wg sync.WaitGroup
	results := make([][]record.Timer, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.Timers(context.Background())
		}(i)
	}
	<-b.started
	// Give the second reader time to join the flight.
	time.Sleep(20 * time.Millisecond)
	close(b.gate)
	wg.Wait()

	assert.Equal(t, 1, b.listCount())
	assert.Len(t, results[0], 1)
	assert.Len(t, results[1], 1)
}

func TestStaleFetchDoesNotClobberOptimisticState(t *testing.T) {
	b := &fakeBackend{timers: []record.Timer{seed("05:05:2024", 60, "a"), seed("04:05:2024", 30, "b")}}
	s, clk := newTestSyncer(t, b)
	ctx := context.Background()

	_, err := s.Timers(ctx)
	require.NoError(t, err)

	clk.Advance(time.Minute)
	b.mu.Lock()
	b.gate = make(chan struct{})
	b.started = make(chan struct{}, 1)
	b.mu.Unlock()

	done := make(chan []record.Timer)
	go func() {
		ts, _ := s.Timers(ctx)
		done <- ts
	}()
	<-b.started

	b.mu.Lock()
	gate := b.gate
	b.gate = nil
	b.mu.Unlock()

	require.NoError(t, s.Delete(ctx, "a"))
	close(gate)

	got := <-done
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	require.Len(t, s.Cached(), 1)
	assert.Equal(t, "b", s.Cached()[0].ID)
}

// ============================================================
// Mutations
// ============================================================

func TestCreateAppliesOptimisticallyThenInvalidates(t *testing.T) {
	b := &fakeBackend{}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()

	got, err := s.Create(ctx, record.NewTimer{Title: "Work", Duration: 120, Date: "05:05:2024", Completed: true})
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)

	cached := s.Cached()
	require.Len(t, cached, 1)
	assert.True(t, strings.HasPrefix(cached[0].ID, TempPrefix), "placeholder stays until refetch")
	assert.False(t, s.Cache().Fresh(time.Hour))

	timers, err := s.Timers(ctx)
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, "id-1", timers[0].ID)
}

func TestFailedCreateRollsBack(t *testing.T) {
	b := &fakeBackend{timers: []record.Timer{seed("04:05:2024", 30, "b")}}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()
	_, err := s.Timers(ctx)
	require.NoError(t, err)
	before := s.Cached()

	b.fail = errTransport
	_, err = s.Create(ctx, record.NewTimer{Title: "Work", Duration: 10, Date: "05:05:2024"})
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, before, s.Cached())

	select {
	case n := <-s.Notices():
		assert.Equal(t, "Failed to save timer", n.Text)
		assert.ErrorIs(t, n.Err, errTransport)
	default:
		t.Fatal("expected a notice")
	}
}

func TestFailedUpdateRollsBack(t *testing.T) {
	b := &fakeBackend{timers: []record.Timer{seed("05:05:2024", 120, "a")}}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()
	_, err := s.Timers(ctx)
	require.NoError(t, err)
	before := s.Cached()

	dur := int64(5)
	_, err = s.Update(ctx, "missing", record.TimerUpdate{Duration: &dur})
	require.ErrorIs(t, err, record.ErrNotFound)
	assert.Equal(t, before, s.Cached())
}

func TestValidationAbortsBeforeMutation(t *testing.T) {
	b := &fakeBackend{timers: []record.Timer{seed("05:05:2024", 120, "a")}}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()
	_, err := s.Timers(ctx)
	require.NoError(t, err)
	rev := s.Cache().Revision()

	_, err = s.Create(ctx, record.NewTimer{Title: "Work", Duration: 1, Date: "5-5-2024"})
	assert.True(t, record.IsValidation(err))
	assert.Equal(t, rev, s.Cache().Revision())
	assert.True(t, s.Cache().Fresh(time.Hour), "validation failure must not invalidate")
	assert.Empty(t, s.Notices())
}

func TestFailedDeleteRollsBack(t *testing.T) {
	b := &fakeBackend{timers: []record.Timer{seed("05:05:2024", 120, "a"), seed("04:05:2024", 30, "b")}}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()
	_, err := s.Timers(ctx)
	require.NoError(t, err)
	before := s.Cached()

	b.fail = errTransport
	require.ErrorIs(t, s.Delete(ctx, "a"), errTransport)
	assert.Equal(t, before, s.Cached())
	assert.False(t, s.Cache().Fresh(time.Hour))

	n := <-s.Notices()
	assert.Equal(t, "Failed to delete timer", n.Text)
}

func TestDeleteAll(t *testing.T) {
	b := &fakeBackend{timers: []record.Timer{seed("05:05:2024", 120, "a")}, secret: "hunter2"}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()
	_, err := s.Timers(ctx)
	require.NoError(t, err)

	err = s.DeleteAll(ctx, "wrong")
	require.ErrorIs(t, err, record.ErrSecretMismatch)
	assert.Len(t, s.Cached(), 1)
	n := <-s.Notices()
	assert.Equal(t, "Secret key rejected", n.Text)

	require.NoError(t, s.DeleteAll(ctx, "hunter2"))
	assert.Empty(t, s.Cached())
	timers, err := s.Timers(ctx)
	require.NoError(t, err)
	assert.Empty(t, timers)
}

// ============================================================
// Save (merge by date)
// ============================================================

func TestSaveCreatesFirstRecord(t *testing.T) {
	b := &fakeBackend{}
	s, _ := newTestSyncer(t, b)

	_, err := s.Save(context.Background(), record.NewTimer{Title: "Work", Duration: 120, Date: "05:05:2024", Completed: true})
	require.NoError(t, err)
	require.Len(t, b.timers, 1)
	assert.Equal(t, int64(120), b.timers[0].Duration)
}

func TestSaveMergesSameDay(t *testing.T) {
	b := &fakeBackend{}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()

	_, err := s.Save(ctx, record.NewTimer{Title: "Work", Duration: 120, Date: "05:05:2024", Completed: true})
	require.NoError(t, err)
	got, err := s.Save(ctx, record.NewTimer{Title: "Work", Duration: 30, Date: "05:05:2024", Completed: true})
	require.NoError(t, err)

	assert.Equal(t, int64(150), got.Duration)
	timers, err := s.Timers(ctx)
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, int64(150), timers[0].Duration)
}

func TestSaveDifferentDaysCreateTwo(t *testing.T) {
	b := &fakeBackend{}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()

	_, err := s.Save(ctx, record.NewTimer{Title: "Work", Duration: 120, Date: "05:05:2024"})
	require.NoError(t, err)
	_, err = s.Save(ctx, record.NewTimer{Title: "Work", Duration: 30, Date: "06:05:2024"})
	require.NoError(t, err)
	assert.Len(t, b.timers, 2)
}

func TestConcurrentSavesSameDayMerge(t *testing.T) {
	b := &fakeBackend{
		createGate:    make(chan struct{}),
		createStarted: make(chan struct{}, 1),
	}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() {
		_, err := s.Save(ctx, record.NewTimer{Title: "Work", Duration: 120, Date: "05:05:2024", Completed: true})
		errs <- err
	}()
	<-b.createStarted

	// The placeholder for the first save is cached while its create waits.
	require.Len(t, s.Cached(), 1)
	go func() {
		_, err := s.Save(ctx, record.NewTimer{Title: "Work", Duration: 30, Date: "05:05:2024", Completed: true})
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)

	b.mu.Lock()
	gate := b.createGate
	b.createGate = nil
	b.mu.Unlock()
	close(gate)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.timers, 1)
	assert.Equal(t, int64(150), b.timers[0].Duration)
}

func TestSetSecret(t *testing.T) {
	b := &fakeBackend{}
	s, _ := newTestSyncer(t, b)
	ctx := context.Background()

	assert.True(t, record.IsValidation(s.SetSecret(ctx, "abc")))
	require.NoError(t, s.SetSecret(ctx, "hunter2"))
	u, err := s.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.HasSecret)
}

// ============================================================
// Background refresh
// ============================================================

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := &fakeBackend{timers: []record.Timer{seed("05:05:2024", 60, "a")}}
	s := New(b, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.listCount() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Len(t, s.Cached(), 1)
}

func TestRunSkipsTickAfterRecentFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := &fakeBackend{timers: []record.Timer{seed("05:05:2024", 60, "a")}}
	clk := &fakeClock{t: time.Date(2024, time.May, 5, 9, 0, 0, 0, time.Local)}
	interval := 10 * time.Millisecond
	s := New(b, WithClock(clk.Now), WithInterval(interval))

	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, b.listCount())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The clock is frozen, so every tick sees the fetch as recent.
	time.Sleep(5 * interval)
	assert.Equal(t, 1, b.listCount(), "ticks within the interval of a fetch must be skipped")

	clk.Advance(interval)
	require.Eventually(t, func() bool { return b.listCount() >= 2 }, time.Second, interval)

	cancel()
	<-done
}
