package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/worklog/internal/record"
)

// Report is everything an export writes: every display record plus totals.
type Report struct {
	GeneratedAt time.Time
	Records     []record.DisplayRecord
	Totals      record.Totals
	Months      []record.MonthStat
}

// NewReport aggregates timers into a report.
func NewReport(timers []record.Timer, now time.Time) Report {
	records := record.Display(timers)
	return Report{
		GeneratedAt: now,
		Records:     records,
		Totals:      record.Summarize(records),
		Months:      record.MonthlyStats(timers),
	}
}

var header = []string{"#", "Date", "Day", "Duration (s)", "Duration"}

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

// Label is the menu name of f.
func (f Format) Label() string { return strings.ToUpper(string(f)) }

// Formats lists the supported formats in menu order.
var Formats = []Format{PDF, CSV, JSON, XLSX}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (valid: csv, json, xlsx, pdf)", s)
}

// FileName is the default output name for f, e.g. worklog-2024-05-05.pdf.
func FileName(f Format, now time.Time) string {
	return fmt.Sprintf("worklog-%s.%s", now.Format("2006-01-02"), f)
}

// Write writes r to path in format f.
func Write(f Format, r Report, path string) error {
	switch f {
	case CSV:
		return ToCSV(r, path)
	case JSON:
		return ToJSON(r, path)
	case XLSX:
		return ToXLSX(r, path)
	case PDF:
		return ToPDF(r, path)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}
