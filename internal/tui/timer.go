package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/worklog/internal/record"
	"github.com/sadopc/worklog/internal/session"
)

type timerModel struct {
	env    *env
	width  int
	height int

	watch     session.Stopwatch
	saving    bool
	lastSaved *record.Timer

	title      string
	dailyGoal  int64
	todayTotal int64
	totals     record.Totals
	sessions   int
}

func newTimerModel(e *env) timerModel {
	return timerModel{
		env:       e,
		watch:     session.New(e.now),
		title:     "Work",
		dailyGoal: defaultDailyGoal,
		sessions:  e.now().YearDay(),
	}
}

func (m *timerModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m timerModel) running() bool { return m.watch.State() == session.Running }
func (m timerModel) paused() bool  { return m.watch.State() == session.Paused }

func (m timerModel) elapsed() int64 { return m.watch.Seconds() }

// setTimers recomputes today's total and the all-time totals.
func (m *timerModel) setTimers(timers []record.Timer) {
	today, _ := record.Today(m.env.now())
	m.todayTotal = 0
	for _, t := range timers {
		if t.Date == today {
			m.todayTotal += t.Duration
		}
	}
	m.totals = record.Summarize(record.Display(timers))
}

func (m *timerModel) applySettings(settings []record.Setting) {
	for _, s := range settings {
		switch s.Key {
		case record.SettingSessionTitle:
			if strings.TrimSpace(s.Value) != "" {
				m.title = s.Value
			}
		case record.SettingDailyGoal:
			if secs, err := strconv.ParseInt(s.Value, 10, 64); err == nil && secs > 0 {
				m.dailyGoal = secs
			}
		}
	}
}

func (m timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.watch.Tick()
		return m, nil

	case sessionSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.watch.Abort()
			m.env.log.Warn("save session", zap.Error(msg.err))
			return m, errStatus(fmt.Sprintf("Failed to save session: %v", msg.err))
		}
		m.lastSaved = msg.timer
		m.sessions++
		done := tea.Tick(session.CompletionDelay, func(time.Time) tea.Msg { return sessionResetMsg{} })
		text := "Session saved"
		if msg.timer != nil {
			text = fmt.Sprintf("Saved. %s now has %s", msg.timer.Date, record.Clock(msg.timer.Duration))
		}
		return m, tea.Batch(done, infoStatus(text))

	case sessionResetMsg:
		if m.watch.State() == session.Completing && !m.saving {
			m.watch.Reset()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if m.watch.State() == session.Running {
				return m, nil
			}
			if err := m.watch.Start(); err != nil {
				return m, nil
			}
			return m, infoStatus("Session started")

		case key.Matches(msg, keys.Pause):
			if err := m.watch.Toggle(); err != nil {
				return m, nil
			}
			if m.paused() {
				return m, infoStatus("Paused")
			}
			return m, infoStatus("Resumed")

		case key.Matches(msg, keys.Done):
			return m.finish()
		}
	}
	return m, nil
}

// finish completes the session and saves it in the background.
func (m timerModel) finish() (timerModel, tea.Cmd) {
	c, err := m.watch.Done(m.title)
	switch {
	case errors.Is(err, session.ErrNothingToSave):
		return m, errStatus("Nothing to save yet")
	case err != nil:
		return m, nil
	}
	m.saving = true
	e := m.env
	return m, func() tea.Msg {
		t, err := e.sync.Save(e.ctx, c.NewTimer())
		return sessionSavedMsg{timer: t, err: err}
	}
}

func (m timerModel) view() string {
	if m.width < 20 {
		return "Terminal too small"
	}
	w := m.width - 4

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStopwatch(w),
		m.renderToday(w),
		m.renderQuote(w),
	)
}

func (m timerModel) renderStopwatch(w int) string {
	clock := record.Clock(m.watch.Seconds())
	title := highlightStyle.Render(m.title)

	var display, indicator, hint string
	style := panelStyle
	switch m.watch.State() {
	case session.Running:
		display = timerRunningStyle.Width(w - 6).Render(clock)
		indicator = successStyle.Render("●  RUNNING")
		hint = mutedStyle.Render("space: pause  x: done")
		style = activePanelStyle
	case session.Paused:
		display = timerPausedStyle.Width(w - 6).Render(clock)
		indicator = warningStyle.Render("⏸  PAUSED")
		hint = mutedStyle.Render("space: resume  x: done")
		style = activePanelStyle
	case session.Completing:
		display = timerStyle.Width(w - 6).Render(clock)
		if m.saving {
			indicator = mutedStyle.Render("…  SAVING")
		} else {
			indicator = successStyle.Render("✓  SAVED")
		}
	default:
		display = timerStyle.Width(w - 6).Render(clock)
		indicator = mutedStyle.Render("■  READY")
		hint = mutedStyle.Render("Press s to start working")
	}

	return style.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, display, indicator, title, hint),
	)
}

func (m timerModel) renderToday(w int) string {
	// Include the running session so the bar moves while working.
	today := m.todayTotal
	if m.watch.State() != session.Completing {
		today += m.watch.Seconds()
	}

	header := fmt.Sprintf("%s  %s %s",
		titleStyle.Render("Today"),
		highlightStyle.Render(record.Clock(today)),
		mutedStyle.Render("of "+record.Hours(m.dailyGoal)+" goal"),
	)

	barWidth := max(10, w-12)
	filled := 0
	if m.dailyGoal > 0 {
		filled = int(float64(barWidth) * float64(today) / float64(m.dailyGoal))
	}
	filled = min(filled, barWidth)
	bar := accentStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", barWidth-filled))
	pct := 0
	if m.dailyGoal > 0 {
		pct = int(100 * today / m.dailyGoal)
	}

	overall := mutedStyle.Render(fmt.Sprintf("You have worked for %s in total across %d days",
		record.Humanize(m.totals.Seconds), m.totals.Days))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		fmt.Sprintf("%s %3d%%", bar, pct),
		"",
		overall,
	))
}

func (m timerModel) renderQuote(w int) string {
	q := quoteFor(m.sessions)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		quoteStyle.Render("“"+q.text+"”"),
		mutedStyle.Render("— "+q.author),
	))
}
