package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worklog/internal/record"
)

// chartMonths is how many months fit on the chart at once.
const chartMonths = 12

type reportsModel struct {
	env    *env
	width  int
	height int

	months []record.MonthStat // newest first
	totals record.Totals
	offset int // pages of chartMonths back from the newest

	chart barchart.Model
}

func newReportsModel(e *env) reportsModel {
	return reportsModel{
		env:   e,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

func (r *reportsModel) setTimers(timers []record.Timer) {
	r.months = record.MonthlyStats(timers)
	r.totals = record.Summarize(record.Display(timers))
	if r.offset > r.maxOffset() {
		r.offset = r.maxOffset()
	}
	r.buildChart()
}

func (r reportsModel) maxOffset() int {
	if len(r.months) == 0 {
		return 0
	}
	return (len(r.months) - 1) / chartMonths
}

// page returns the months on the current page, oldest first.
func (r reportsModel) page() []record.MonthStat {
	start := r.offset * chartMonths
	if start >= len(r.months) {
		return nil
	}
	end := min(len(r.months), start+chartMonths)
	page := make([]record.MonthStat, 0, end-start)
	for i := end - 1; i >= start; i-- {
		page = append(page, r.months[i])
	}
	return page
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Left):
			if r.offset < r.maxOffset() {
				r.offset++
				r.buildChart()
			}
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
				r.buildChart()
			}
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := max(20, r.width-8)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}
	r.chart = barchart.New(chartWidth, chartHeight)

	style := lipgloss.NewStyle().Foreground(colorPrimary)
	var bars []barchart.BarData
	for _, m := range r.page() {
		bars = append(bars, barchart.BarData{
			Label: fmt.Sprintf("%s %02d", m.Month.String()[:3], m.Year%100),
			Values: []barchart.BarValue{{
				Name:  m.MonthName(),
				Value: float64(m.TotalSeconds) / 3600.0,
				Style: style,
			}},
		})
	}
	if len(bars) == 0 {
		return
	}
	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4
	header := titleStyle.Render("Monthly report")

	if len(r.months) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			mutedStyle.Render("No data yet. Completed sessions show up here by month."),
		))
	}

	page := r.page()
	rangeLabel := mutedStyle.Render(fmt.Sprintf("%s %d – %s %d",
		page[0].MonthName(), page[0].Year,
		page[len(page)-1].MonthName(), page[len(page)-1].Year))

	summary := fmt.Sprintf("  %s %s   %s %s",
		mutedStyle.Render("Days worked"), highlightStyle.Render(fmt.Sprint(r.totals.Days)),
		mutedStyle.Render("Total"), highlightStyle.Render(record.Clock(r.totals.Seconds)),
	)
	humanized := mutedStyle.Render("  You have worked for " + record.Humanize(r.totals.Seconds) + " in total")

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Bottom, header, "  ", rangeLabel),
		"",
		r.chart.View(),
		"",
		r.renderTable(w, page),
		"",
		summary,
		humanized,
		"",
		mutedStyle.Render("  ←/→: older/newer"),
	))
}

func (r reportsModel) renderTable(w int, page []record.MonthStat) string {
	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-16s %12s %8s", "Month", "Duration", "Hours")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 38))))
	for i := len(page) - 1; i >= 0; i-- {
		m := page[i]
		rows = append(rows, fmt.Sprintf("  %-16s %12s %8s",
			fmt.Sprintf("%s %d", m.MonthName(), m.Year),
			record.Clock(m.TotalSeconds),
			record.Hours(m.TotalSeconds),
		))
	}
	return strings.Join(rows, "\n")
}
