package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/worklog/internal/cache"
	"github.com/sadopc/worklog/internal/export"
	"github.com/sadopc/worklog/internal/record"
)

// App is the root Bubble Tea model.
type App struct {
	env    *env
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	// rev is the cache revision the views were last built from.
	rev uint64

	timer    timerModel
	history  historyModel
	reports  reportsModel
	settings settingsModel

	help        help.Model
	status      string
	statusError bool
}

// NewApp builds the TUI. The obfuscated secret key is read from d.KeyFile.
func NewApp(d Deps) App {
	e := newEnv(d)
	h := help.New()
	h.ShowAll = false

	stored, err := e.keyFile.Load()
	if err != nil {
		e.log.Warn("load key file", zap.Error(err))
	}

	return App{
		env:        e,
		activeView: viewTimer,
		timer:      newTimerModel(e),
		history:    newHistoryModel(e, stored),
		reports:    newReportsModel(e),
		settings:   newSettingsModel(e, stored != ""),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.loadTimers(),
		a.settings.refresh(),
		a.settings.loadUser(),
		listenNotices(a.env.sync.Notices()),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) loadTimers() tea.Cmd {
	e := a.env
	return func() tea.Msg {
		timers, err := e.sync.Timers(e.ctx)
		return timersLoadedMsg{timers: timers, err: err}
	}
}

// listenNotices waits for the next background failure from the syncer.
func listenNotices(ch <-chan cache.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

// rebuild pushes the cached timers into every view that derives from them.
func (a *App) rebuild() {
	timers := a.env.sync.Cached()
	a.rev = a.env.sync.Cache().Revision()
	a.timer.setTimers(timers)
	a.history.setTimers(timers)
	a.reports.setTimers(timers)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTimer
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewHistory
			return a, a.loadTimers()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewReports
			return a, a.loadTimers()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, tea.Batch(a.settings.refresh(), a.settings.loadUser())
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, nil
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		// The syncer mutates the cache from commands and its refresher.
		if a.env.sync.Cache().Revision() != a.rev {
			a.rebuild()
		}
		var cmd tea.Cmd
		a.timer, cmd = a.timer.update(msg)
		cmds = append(cmds, cmd)
		a.history, cmd = a.history.update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case timersLoadedMsg:
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Failed to load records: %v", msg.err), true)
		}
		a.rebuild()
		return a, nil

	case sessionSavedMsg:
		var cmd tea.Cmd
		a.timer, cmd = a.timer.update(msg)
		a.rebuild()
		return a, tea.Batch(cmd, a.loadTimers())

	case sessionResetMsg:
		var cmd tea.Cmd
		a.timer, cmd = a.timer.update(msg)
		return a, cmd

	case mutationDoneMsg:
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Error: %v", msg.err), true)
		} else {
			a.setStatus(msg.text, false)
		}
		a.rebuild()
		return a, a.loadTimers()

	case destroyDoneMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.update(msg)
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Delete all failed: %v", msg.err), true)
		} else {
			a.setStatus("All records deleted", false)
			a.env.log.Info("all records deleted")
		}
		a.rebuild()
		return a, tea.Batch(cmd, a.loadTimers())

	case settingsDataMsg:
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Settings: %v", msg.err), true)
		} else {
			a.timer.applySettings(msg.settings)
			a.history.defaultTitle = a.timer.title
		}
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case userLoadedMsg:
		if msg.err == nil && msg.user == nil && !a.history.destroy.guard.HasKey() {
			a.setStatus("No secret key yet. Press 4 then k to set one.", false)
		}
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case secretSavedMsg:
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Failed to save secret key: %v", msg.err), true)
		} else {
			a.history.destroy.setStoredKey(msg.obfuscated)
			a.setStatus("Secret key saved", false)
		}
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case noticeMsg:
		a.setStatus(msg.Text, true)
		if msg.Err != nil {
			a.env.log.Warn(msg.Text, zap.Error(msg.Err))
		}
		return a, listenNotices(a.env.sync.Notices())

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusError = isError
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewHistory:
		return a.history.capturing()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewHistory:
		content = a.history.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("worklog")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusError {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	// Stopwatch indicator, visible from every tab.
	timerInfo := ""
	if a.timer.running() {
		timerInfo = successStyle.Render(" ● " + record.Clock(a.timer.elapsed()))
	} else if a.timer.paused() {
		timerInfo = warningStyle.Render(" ⏸ " + record.Clock(a.timer.elapsed()))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Export Format"), "")
	for i, f := range export.Formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f.Label()))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(export.Formats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(export.Formats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(f export.Format) tea.Cmd {
	e := a.env
	return func() tea.Msg {
		timers, err := e.sync.Timers(e.ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		dir := e.exportDir
		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		now := e.now()
		path := filepath.Join(dir, export.FileName(f, now))
		if err := export.Write(f, export.NewReport(timers, now), path); err != nil {
			return statusMsg{text: fmt.Sprintf("%s export error: %v", f.Label(), err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
