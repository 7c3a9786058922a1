package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sadopc/worklog/internal/record"
)

const (
	recordsSheet = "Records"
	monthsSheet  = "Monthly"
)

// ToXLSX writes a workbook with a records sheet (plus totals row) and a
// monthly summary sheet.
func ToXLSX(r Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), recordsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(monthsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	rows := [][]any{toAny(header)}
	for _, rec := range r.Records {
		rows = append(rows, []any{rec.Index, rec.DateLabel(), rec.DayOfWeek, rec.Duration, record.Clock(rec.Duration)})
	}
	totalRow := len(rows) + 1
	rows = append(rows, []any{"Total", fmt.Sprintf("%d days", r.Totals.Days), "", r.Totals.Seconds, record.Clock(r.Totals.Seconds)})
	if err := setRows(f, recordsSheet, rows); err != nil {
		return err
	}
	if err := styleRow(f, recordsSheet, 1, len(header), bold); err != nil {
		return err
	}
	if err := styleRow(f, recordsSheet, totalRow, len(header), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(recordsSheet, "B", "E", 14); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	months := [][]any{{"Month", "Year", "Duration (s)", "Hours"}}
	for _, m := range r.Months {
		months = append(months, []any{m.MonthName(), m.Year, m.TotalSeconds, record.Hours(m.TotalSeconds)})
	}
	if err := setRows(f, monthsSheet, months); err != nil {
		return err
	}
	if err := styleRow(f, monthsSheet, 1, 4, bold); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(cols, row)
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("style row %d: %w", row, err)
	}
	return nil
}
