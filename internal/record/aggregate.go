package record

import (
	"sort"
	"time"
)

// Display turns raw timers into numbered display rows, most recent first.
//
// Entries without an id or date are dropped. Entries whose date does not
// parse are kept (rendered as "Invalid Date") and sort after all valid ones.
// Ties keep input order. The result is rebuilt from scratch on every call.
func Display(timers []Timer) []DisplayRecord {
	records := make([]DisplayRecord, 0, len(timers))
	for _, t := range timers {
		if t.ID == "" || t.Date == "" {
			continue
		}
		r := DisplayRecord{
			ID:        t.ID,
			Date:      t.Date,
			DayOfWeek: t.DayOfWeek,
			Duration:  t.Duration,
		}
		if d, err := ParseDate(t.Date); err == nil {
			r.Valid = true
			r.parsed = d
		}
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.parsed.After(b.parsed)
	})

	for i := range records {
		records[i].Index = i + 1
	}
	return records
}

type monthKey struct {
	year  int
	month time.Month
}

// MonthlyStats sums durations per calendar month, newest month first.
// Timers with unparsable dates are left out.
func MonthlyStats(timers []Timer) []MonthStat {
	totals := make(map[monthKey]int64)
	for _, t := range timers {
		if t.ID == "" || t.Date == "" {
			continue
		}
		d, err := ParseDate(t.Date)
		if err != nil {
			continue
		}
		totals[monthKey{d.Year(), d.Month()}] += t.Duration
	}

	stats := make([]MonthStat, 0, len(totals))
	for k, secs := range totals {
		stats = append(stats, MonthStat{Month: k.month, Year: k.year, TotalSeconds: secs})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Year != stats[j].Year {
			return stats[i].Year > stats[j].Year
		}
		return stats[i].Month > stats[j].Month
	})
	return stats
}

// Summarize counts distinct days and total seconds across records.
func Summarize(records []DisplayRecord) Totals {
	days := make(map[string]struct{}, len(records))
	var t Totals
	for _, r := range records {
		days[r.Date] = struct{}{}
		t.Seconds += r.Duration
	}
	t.Days = len(days)
	return t
}

// FindByDate returns the first timer recorded on date.
func FindByDate(timers []Timer, date string) (Timer, bool) {
	for _, t := range timers {
		if t.Date == date {
			return t, true
		}
	}
	return Timer{}, false
}
