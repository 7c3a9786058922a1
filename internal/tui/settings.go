package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/worklog/internal/guard"
	"github.com/sadopc/worklog/internal/record"
)

const (
	formPrefs  = "prefs"
	formSecret = "secret"
)

type settingsModel struct {
	env    *env
	width  int
	height int

	settings   []record.Setting
	user       *record.User
	localKey   bool
	formActive bool
	form       *huh.Form
	formType   string

	// Form values as pointers (survive value copies)
	sessionTitle *string
	dailyGoal    *string
	secret       *string
	secretAgain  *string
}

func newSettingsModel(e *env, hasLocalKey bool) settingsModel {
	st, dg, sk, sa := "", "", "", ""
	return settingsModel{
		env:          e,
		localKey:     hasLocalKey,
		sessionTitle: &st,
		dailyGoal:    &dg,
		secret:       &sk,
		secretAgain:  &sa,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) refresh() tea.Cmd {
	e := s.env
	if e.prefs == nil {
		return nil
	}
	return func() tea.Msg {
		settings, err := e.prefs.GetAllSettings(e.ctx)
		return settingsDataMsg{settings: settings, err: err}
	}
}

func (s settingsModel) loadUser() tea.Cmd {
	e := s.env
	return func() tea.Msg {
		u, err := e.sync.User(e.ctx)
		return userLoadedMsg{user: u, err: err}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		if msg.err == nil {
			s.settings = msg.settings
		}
		return s, nil

	case userLoadedMsg:
		if msg.err == nil {
			s.user = msg.user
		}
		return s, nil

	case secretSavedMsg:
		if msg.err == nil {
			s.localKey = true
			s.user = &record.User{HasSecret: true}
		}
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showPrefsForm()
		case key.Matches(msg, keys.Secret):
			return s.showSecretForm()
		}
	}
	return s, nil
}

func (s settingsModel) getVal(k, fallback string) string {
	for _, st := range s.settings {
		if st.Key == k {
			return st.Value
		}
	}
	return fallback
}

func (s settingsModel) showPrefsForm() (settingsModel, tea.Cmd) {
	if s.env.prefs == nil {
		return s, errStatus("Settings are not available for this backend")
	}
	*s.sessionTitle = s.getVal(record.SettingSessionTitle, "Work")
	*s.dailyGoal = secsToHours(s.getVal(record.SettingDailyGoal, strconv.Itoa(defaultDailyGoal)))
	s.formType = formPrefs

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Session title").CharLimit(record.MaxTitleLen).Value(s.sessionTitle).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
			huh.NewInput().Title("Daily goal (hours)").Value(s.dailyGoal).
				Validate(func(v string) error {
					h, err := strconv.ParseFloat(v, 64)
					if err != nil || h <= 0 || h > 24 {
						return fmt.Errorf("enter hours between 0 and 24")
					}
					return nil
				}),
		).Title("Preferences"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showSecretForm() (settingsModel, tea.Cmd) {
	*s.secret = ""
	*s.secretAgain = ""
	s.formType = formSecret

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Secret key").
				Description("Required to delete all records").
				EchoMode(huh.EchoModePassword).
				Value(s.secret).
				Validate(record.ValidateSecret),
			huh.NewInput().Title("Repeat secret key").
				EchoMode(huh.EchoModePassword).
				Value(s.secretAgain).
				Validate(func(v string) error {
					if v != *s.secret {
						return fmt.Errorf("keys do not match")
					}
					return nil
				}),
		).Title("Secret key"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		switch s.formType {
		case formPrefs:
			return s, s.savePrefs()
		case formSecret:
			return s, s.saveSecret(*s.secret)
		}
	}
	return s, cmd
}

func (s settingsModel) savePrefs() tea.Cmd {
	e := s.env
	title := strings.TrimSpace(*s.sessionTitle)
	goal := hoursToSecs(*s.dailyGoal)
	return func() tea.Msg {
		if err := e.prefs.SetSetting(e.ctx, record.SettingSessionTitle, title); err != nil {
			return settingsDataMsg{err: err}
		}
		if err := e.prefs.SetSetting(e.ctx, record.SettingDailyGoal, goal); err != nil {
			return settingsDataMsg{err: err}
		}
		settings, err := e.prefs.GetAllSettings(e.ctx)
		return settingsDataMsg{settings: settings, err: err}
	}
}

// saveSecret stores the key on the server first and keeps the obfuscated
// copy locally only once the server accepted it.
func (s settingsModel) saveSecret(secret string) tea.Cmd {
	e := s.env
	return func() tea.Msg {
		if err := e.sync.SetSecret(e.ctx, secret); err != nil {
			return secretSavedMsg{err: err}
		}
		if err := e.keyFile.Save(secret); err != nil {
			e.log.Warn("write key file", zap.String("path", e.keyFile.Path), zap.Error(err))
			return secretSavedMsg{err: fmt.Errorf("save key file: %w", err)}
		}
		return secretSavedMsg{obfuscated: guard.Obfuscate(secret)}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Settings"), "", s.form.View()),
		)
	}

	label := lipgloss.NewStyle().Width(20)
	line := func(k, v string) string {
		return fmt.Sprintf("  %s %s", label.Render(k), v)
	}

	secret := warningStyle.Render("not set")
	switch {
	case s.user != nil && s.user.HasSecret && s.localKey:
		secret = successStyle.Render("configured")
	case s.user != nil && s.user.HasSecret:
		secret = warningStyle.Render("set on server, missing on this machine")
	case s.localKey:
		secret = warningStyle.Render("saved locally, missing on server")
	}

	rows := []string{
		titleStyle.Render("Settings"),
		"",
		line("Session title", highlightStyle.Render(s.getVal(record.SettingSessionTitle, "Work"))),
		line("Daily goal", highlightStyle.Render(secsToHours(s.getVal(record.SettingDailyGoal, strconv.Itoa(defaultDailyGoal)))+" hours")),
		line("Secret key", secret),
	}
	if s.env.keyFile.Path != "" {
		rows = append(rows, line("Key file", mutedStyle.Render(s.env.keyFile.Path)))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: edit preferences  k: set secret key"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
