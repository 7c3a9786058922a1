package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worklog/internal/guard"
	"github.com/sadopc/worklog/internal/record"
)

// destroyModel is the delete-all overlay: a countdown that must run out and
// a secret key that must match before anything is sent.
type destroyModel struct {
	env      *env
	guard    guard.Guard
	input    textinput.Model
	active   bool
	deleting bool
}

func newDestroyModel(e *env, obfuscatedKey string) destroyModel {
	ti := textinput.New()
	ti.Placeholder = "secret key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 128
	return destroyModel{env: e, guard: guard.New(obfuscatedKey), input: ti}
}

func (d *destroyModel) setStoredKey(obfuscated string) {
	d.guard.SetStoredKey(obfuscated)
}

func (d destroyModel) arm() (destroyModel, tea.Cmd) {
	if err := d.guard.Arm(); err != nil {
		if errors.Is(err, record.ErrNoSecret) {
			return d, errStatus("Set a secret key first (Settings, k)")
		}
		return d, errStatus(err.Error())
	}
	d.active = true
	d.deleting = false
	d.input.Reset()
	return d, d.input.Focus()
}

func (d destroyModel) update(msg tea.Msg) (destroyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		d.guard.Tick()
		return d, nil

	case destroyDoneMsg:
		d.deleting = false
		d.active = false
		d.input.Blur()
		return d, nil

	case tea.KeyMsg:
		if d.deleting {
			return d, nil
		}
		switch {
		case key.Matches(msg, keys.Back):
			d.guard.Cancel()
			d.active = false
			d.input.Blur()
			return d, infoStatus("Delete all cancelled")
		case key.Matches(msg, keys.Enter):
			return d.confirm()
		}
	}

	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	return d, cmd
}

func (d destroyModel) confirm() (destroyModel, tea.Cmd) {
	d.guard.SetCandidate(d.input.Value())
	secret, err := d.guard.Confirm()
	switch {
	case errors.Is(err, guard.ErrNotReady):
		if d.guard.Remaining() > 0 {
			return d, errStatus(fmt.Sprintf("Wait %ds before confirming", d.guard.Remaining()))
		}
		return d, errStatus("Enter your secret key")
	case errors.Is(err, guard.ErrKeyMismatch):
		d.input.Reset()
		return d, errStatus("Secret key does not match")
	case err != nil:
		return d, errStatus(err.Error())
	}

	d.deleting = true
	e := d.env
	return d, func() tea.Msg {
		return destroyDoneMsg{err: e.sync.DeleteAll(e.ctx, secret)}
	}
}

func (d destroyModel) view(w int) string {
	title := errorStyle.Bold(true).Render("Delete all records")
	warning := mutedStyle.Render("This removes every recorded day and cannot be undone.")

	var countdown string
	switch {
	case d.deleting:
		countdown = warningStyle.Render("Deleting…")
	case d.guard.Remaining() > 0:
		countdown = d.renderCountdown()
	default:
		countdown = successStyle.Render("You may confirm now")
	}

	return dangerPanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		warning,
		"",
		countdown,
		"",
		d.input.View(),
		"",
		mutedStyle.Render("enter: confirm  esc: cancel"),
	))
}

func (d destroyModel) renderCountdown() string {
	var parts []string
	elapsed := guard.Countdown - d.guard.Remaining()
	for i := 0; i < guard.Countdown; i++ {
		if i < elapsed {
			parts = append(parts, accentStyle.Render("●"))
		} else {
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	return strings.Join(parts, " ") + warningStyle.Render(fmt.Sprintf("  %ds", d.guard.Remaining()))
}
