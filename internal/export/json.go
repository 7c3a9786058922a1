package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/worklog/internal/record"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Totals     jsonTotals  `json:"totals"`
	Records    []jsonEntry `json:"records"`
	Months     []jsonMonth `json:"months"`
}

type jsonTotals struct {
	Days        int    `json:"days"`
	DurationSec int64  `json:"duration_seconds"`
	Duration    string `json:"duration"`
}

type jsonEntry struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Date        string `json:"date"`
	DayOfWeek   string `json:"day_of_week"`
	DurationSec int64  `json:"duration_seconds"`
	Duration    string `json:"duration"`
}

type jsonMonth struct {
	Month       string `json:"month"`
	Year        int    `json:"year"`
	DurationSec int64  `json:"duration_seconds"`
}

func ToJSON(r Report, path string) error {
	out := jsonExport{
		ExportedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		Count:      len(r.Records),
		Totals: jsonTotals{
			Days:        r.Totals.Days,
			DurationSec: r.Totals.Seconds,
			Duration:    record.Clock(r.Totals.Seconds),
		},
		Records: make([]jsonEntry, 0, len(r.Records)),
		Months:  make([]jsonMonth, 0, len(r.Months)),
	}

	for _, rec := range r.Records {
		out.Records = append(out.Records, jsonEntry{
			Index:       rec.Index,
			ID:          rec.ID,
			Date:        rec.DateLabel(),
			DayOfWeek:   rec.DayOfWeek,
			DurationSec: rec.Duration,
			Duration:    record.Clock(rec.Duration),
		})
	}
	for _, m := range r.Months {
		out.Months = append(out.Months, jsonMonth{
			Month:       m.MonthName(),
			Year:        m.Year,
			DurationSec: m.TotalSeconds,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
