package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worklog/internal/record"
)

const (
	formAdd  = "add"
	formEdit = "edit"
)

type historyModel struct {
	env    *env
	width  int
	height int

	records []record.DisplayRecord
	totals  record.Totals
	cursor  int
	offset  int

	defaultTitle string

	formActive bool
	form       *huh.Form
	formType   string
	editingID  string

	// Form field pointers (survive value copies)
	formDate     *string
	formDay      *string
	formDuration *string
	formTitle    *string

	destroy destroyModel
}

func newHistoryModel(e *env, obfuscatedKey string) historyModel {
	date, day, dur, title := "", "", "", ""
	return historyModel{
		env:          e,
		defaultTitle: "Work",
		formDate:     &date,
		formDay:      &day,
		formDuration: &dur,
		formTitle:    &title,
		destroy:      newDestroyModel(e, obfuscatedKey),
	}
}

func (h *historyModel) setSize(w, hgt int) {
	h.width = w
	h.height = hgt
}

func (h *historyModel) setTimers(timers []record.Timer) {
	h.records = record.Display(timers)
	h.totals = record.Summarize(h.records)
	if h.cursor >= len(h.records) {
		h.cursor = max(0, len(h.records)-1)
	}
	h.clampOffset()
}

// capturing reports whether keys should bypass the global bindings.
func (h historyModel) capturing() bool {
	return h.formActive || h.destroy.active
}

func (h historyModel) visibleRows() int {
	return max(3, h.height-12)
}

func (h *historyModel) clampOffset() {
	rows := h.visibleRows()
	if h.cursor < h.offset {
		h.offset = h.cursor
	}
	if h.cursor >= h.offset+rows {
		h.offset = h.cursor - rows + 1
	}
	h.offset = max(0, h.offset)
}

func (h historyModel) selected() (record.DisplayRecord, bool) {
	if h.cursor < 0 || h.cursor >= len(h.records) {
		return record.DisplayRecord{}, false
	}
	return h.records[h.cursor], true
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	if _, ok := msg.(tickMsg); ok {
		var cmd tea.Cmd
		h.destroy, cmd = h.destroy.update(msg)
		return h, cmd
	}
	if done, ok := msg.(destroyDoneMsg); ok {
		var cmd tea.Cmd
		h.destroy, cmd = h.destroy.update(done)
		return h, cmd
	}

	if h.destroy.active {
		var cmd tea.Cmd
		h.destroy, cmd = h.destroy.update(msg)
		return h, cmd
	}
	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
			h.clampOffset()
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.records)-1 {
				h.cursor++
			}
			h.clampOffset()
		case key.Matches(msg, keys.New):
			return h.showAddForm()
		case key.Matches(msg, keys.Edit):
			if _, ok := h.selected(); ok {
				return h.showEditForm()
			}
		case key.Matches(msg, keys.Delete):
			return h, h.deleteSelected()
		case key.Matches(msg, keys.Destroy):
			var cmd tea.Cmd
			h.destroy, cmd = h.destroy.arm()
			return h, cmd
		}
	}
	return h, nil
}

func validDate(s string) error {
	if _, err := record.ParseDate(strings.TrimSpace(s)); err != nil {
		return errors.New("use DD:MM:YYYY")
	}
	return nil
}

func validClock(s string) error {
	if _, err := record.ParseClock(s); err != nil {
		return errors.New("use HH:MM:SS")
	}
	return nil
}

func (h historyModel) showAddForm() (historyModel, tea.Cmd) {
	date, _ := record.Today(h.env.now())
	*h.formDate = date
	*h.formDuration = "01:00:00"
	*h.formTitle = h.defaultTitle
	h.formType = formAdd

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Date (DD:MM:YYYY)").Value(h.formDate).Validate(validDate),
			huh.NewInput().Title("Duration (HH:MM:SS)").Value(h.formDuration).Validate(validClock),
			huh.NewInput().Title("Title").CharLimit(record.MaxTitleLen).Value(h.formTitle),
		),
	).WithShowHelp(true).WithShowErrors(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) showEditForm() (historyModel, tea.Cmd) {
	r, _ := h.selected()
	*h.formDate = r.Date
	*h.formDay = r.DayOfWeek
	*h.formDuration = record.Clock(r.Duration)
	h.formType = formEdit
	h.editingID = r.ID

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Date (DD:MM:YYYY)").Value(h.formDate).Validate(validDate),
			huh.NewInput().Title("Day of week").Description("Leave empty to derive it from the date").Value(h.formDay),
			huh.NewInput().Title("Duration (HH:MM:SS)").Value(h.formDuration).Validate(validClock),
		),
	).WithShowHelp(true).WithShowErrors(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) updateForm(msg tea.Msg) (historyModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			h.formActive = false
			h.form = nil
			return h, nil
		}
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	if h.form.State == huh.StateCompleted {
		h.formActive = false
		h.form = nil
		switch h.formType {
		case formAdd:
			return h, h.submitAdd()
		case formEdit:
			return h, h.submitEdit()
		}
	}
	return h, cmd
}

// submitAdd records a missing day. An existing record for the same date is
// extended rather than duplicated.
func (h historyModel) submitAdd() tea.Cmd {
	secs, err := record.ParseClock(*h.formDuration)
	if err != nil {
		return errStatus(err.Error())
	}
	n := record.NewTimer{
		Title:     *h.formTitle,
		Duration:  secs,
		Date:      strings.TrimSpace(*h.formDate),
		Completed: true,
	}
	e := h.env
	return func() tea.Msg {
		t, err := e.sync.Save(e.ctx, n)
		if err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{text: fmt.Sprintf("Recorded %s on %s", record.Clock(t.Duration), t.Date)}
	}
}

func (h historyModel) submitEdit() tea.Cmd {
	secs, err := record.ParseClock(*h.formDuration)
	if err != nil {
		return errStatus(err.Error())
	}
	date := strings.TrimSpace(*h.formDate)
	day := strings.TrimSpace(*h.formDay)
	u := record.TimerUpdate{Date: &date, Duration: &secs}
	if day != "" {
		u.DayOfWeek = &day
	}
	id := h.editingID
	e := h.env
	return func() tea.Msg {
		if _, err := e.sync.Update(e.ctx, id, u); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{text: "Record updated"}
	}
}

func (h historyModel) deleteSelected() tea.Cmd {
	r, ok := h.selected()
	if !ok {
		return nil
	}
	e := h.env
	return func() tea.Msg {
		if err := e.sync.Delete(e.ctx, r.ID); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{text: "Deleted " + r.DateLabel()}
	}
}

func (h historyModel) view() string {
	w := h.width - 4

	if h.destroy.active {
		return h.destroy.view(w)
	}

	if h.formActive && h.form != nil {
		title := titleStyle.Render("Add a day")
		if h.formType == formEdit {
			title = titleStyle.Render("Edit record")
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", h.form.View()),
		)
	}

	title := titleStyle.Render("History")
	if len(h.records) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No records yet. Finish a session or press n to add a day."),
		))
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-5s %-12s %-11s %10s", "#", "Date", "Day", "Duration")))

	end := min(len(h.records), h.offset+h.visibleRows())
	for i := h.offset; i < end; i++ {
		r := h.records[i]
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		date := r.DateLabel()
		if !r.Valid {
			date = errorStyle.Render(fmt.Sprintf("%-12s", date))
		} else {
			date = fmt.Sprintf("%-12s", date)
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-5d ", cursor, r.Index))+
			style.Render(date)+
			style.Render(fmt.Sprintf(" %-11s %10s", r.DayOfWeek, record.Clock(r.Duration))))
	}
	if len(h.records) > h.visibleRows() {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %d-%d of %d", h.offset+1, end, len(h.records))))
	}

	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 44))))
	rows = append(rows, fmt.Sprintf("  %s %s   %s %s",
		mutedStyle.Render("Days"), highlightStyle.Render(fmt.Sprint(h.totals.Days)),
		mutedStyle.Render("Total"), highlightStyle.Render(record.Clock(h.totals.Seconds)),
	))
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: add day  e: edit  d: delete  D: delete all"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
