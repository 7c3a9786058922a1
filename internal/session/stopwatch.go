package session

import (
	"errors"
	"time"

	"github.com/sadopc/worklog/internal/record"
)

// CompletionDelay is how long the "saved" state stays visible before reset.
const CompletionDelay = time.Second

var (
	// ErrNothingToSave is returned by Done when less than a second has
	// been recorded.
	ErrNothingToSave = errors.New("no time recorded yet")
	// ErrCompleting is returned by Start and Done while the previous
	// session is still being saved.
	ErrCompleting = errors.New("session is being saved")
)

// State is the stopwatch state.
type State int

const (
	Idle State = iota
	Running
	Paused
	Completing
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completing:
		return "completing"
	default:
		return "idle"
	}
}

// Completion describes a finished session, ready to be merged into the day's record.
type Completion struct {
	Title     string
	Duration  int64 // seconds
	Date      string
	DayOfWeek string
}

// NewTimer converts c into a create request.
func (c Completion) NewTimer() record.NewTimer {
	return record.NewTimer{
		Title:     c.Title,
		Duration:  c.Duration,
		Date:      c.Date,
		DayOfWeek: c.DayOfWeek,
		Completed: true,
	}
}

// Stopwatch tracks elapsed work time. Elapsed time is always derived from the
// captured start instant, so late or skipped ticks never cause drift.
type Stopwatch struct {
	now func() time.Time

	state   State
	started time.Time     // start of the current running segment
	offset  time.Duration // time accumulated before the current segment
	elapsed time.Duration // last computed value
}

// New returns an idle stopwatch. A nil clock means time.Now.
func New(now func() time.Time) Stopwatch {
	if now == nil {
		now = time.Now
	}
	return Stopwatch{now: now}
}

func (s *Stopwatch) State() State { return s.state }

// Start begins or resumes the session.
func (s *Stopwatch) Start() error {
	switch s.state {
	case Running:
		return nil
	case Completing:
		return ErrCompleting
	}
	if s.state == Idle {
		s.offset = 0
		s.elapsed = 0
	}
	s.started = s.now()
	s.state = Running
	return nil
}

// Pause freezes elapsed time. It is a no-op unless running.
func (s *Stopwatch) Pause() {
	if s.state != Running {
		return
	}
	s.offset += s.now().Sub(s.started)
	s.elapsed = s.offset
	s.state = Paused
}

// Toggle pauses a running stopwatch and starts any other.
func (s *Stopwatch) Toggle() error {
	if s.state == Running {
		s.Pause()
		return nil
	}
	return s.Start()
}

// Tick recomputes elapsed time from the start instant.
func (s *Stopwatch) Tick() {
	if s.state == Running {
		s.elapsed = s.offset + s.now().Sub(s.started)
	}
}

// Elapsed returns the current elapsed time.
func (s *Stopwatch) Elapsed() time.Duration {
	s.Tick()
	return s.elapsed
}

// Seconds returns whole elapsed seconds.
func (s *Stopwatch) Seconds() int64 {
	return int64(s.Elapsed() / time.Second)
}

// Done finishes the session and returns what should be saved. The stopwatch
// stays in Completing until Reset is called.
func (s *Stopwatch) Done(title string) (Completion, error) {
	if s.state == Completing {
		return Completion{}, ErrCompleting
	}
	secs := s.Seconds()
	if secs <= 0 {
		return Completion{}, ErrNothingToSave
	}
	if s.state == Running {
		s.Pause()
	}
	s.state = Completing

	now := s.now()
	date, day := record.Today(now)
	return Completion{
		Title:     title,
		Duration:  secs,
		Date:      date,
		DayOfWeek: day,
	}, nil
}

// Abort leaves Completing for Paused, keeping the elapsed time so the
// session can be saved again.
func (s *Stopwatch) Abort() {
	if s.state == Completing {
		s.state = Paused
	}
}

// Reset returns to Idle with zero elapsed time.
func (s *Stopwatch) Reset() {
	s.state = Idle
	s.offset = 0
	s.elapsed = 0
	s.started = time.Time{}
}
