package record

import (
	"testing"
	"time"
)

func timer(id, date string, dur int64) Timer {
	return Timer{ID: id, Title: "Work", Date: date, DayOfWeek: "Monday", Duration: dur}
}

// ============================================================
// Dates
// ============================================================

func TestParseDate(t *testing.T) {
	d, err := ParseDate("05:05:2024")
	if err != nil {
		t.Fatal(err)
	}
	if d.Day() != 5 || d.Month() != time.May || d.Year() != 2024 {
		t.Fatalf("unexpected date: %v", d)
	}
}

func TestParseDateRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"5:05:2024",
		"05/05/2024",
		"2024:05:05",
		"31:02:2024",
		"00:01:2024",
		"05:13:2024",
		"05:05:24",
		"aa:bb:cccc",
		"05:05:2024x",
	}
	for _, s := range bad {
		if _, err := ParseDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	in := time.Date(2023, time.December, 9, 15, 0, 0, 0, time.Local)
	s := FormatDate(in)
	if s != "09:12:2023" {
		t.Fatalf("FormatDate = %q", s)
	}
	if DayName(in) != "Saturday" {
		t.Fatalf("DayName = %q", DayName(in))
	}
}

// ============================================================
// Display
// ============================================================

func TestDisplaySortsNewestFirst(t *testing.T) {
	recs := Display([]Timer{
		timer("a", "01:01:2024", 10),
		timer("b", "15:03:2024", 20),
		timer("c", "02:01:2024", 30),
	})
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if recs[i].ID != id {
			t.Fatalf("recs[%d].ID = %s, want %s", i, recs[i].ID, id)
		}
		if recs[i].Index != i+1 {
			t.Fatalf("recs[%d].Index = %d, want %d", i, recs[i].Index, i+1)
		}
	}
}

func TestDisplayStableTies(t *testing.T) {
	recs := Display([]Timer{
		timer("first", "05:05:2024", 1),
		timer("second", "05:05:2024", 2),
		timer("third", "05:05:2024", 3),
	})
	for i, id := range []string{"first", "second", "third"} {
		if recs[i].ID != id {
			t.Fatalf("tie order broken at %d: got %s", i, recs[i].ID)
		}
	}
}

func TestDisplayDropsMalformed(t *testing.T) {
	recs := Display([]Timer{
		{ID: "", Date: "01:01:2024", Duration: 5},
		{ID: "x", Date: "", Duration: 5},
		timer("ok", "01:01:2024", 5),
	})
	if len(recs) != 1 || recs[0].ID != "ok" {
		t.Fatalf("expected only the well-formed record, got %+v", recs)
	}
}

func TestDisplayInvalidDateKept(t *testing.T) {
	recs := Display([]Timer{
		timer("bad", "2024-01-01", 50),
		timer("good1", "01:01:2024", 10),
		timer("good2", "03:01:2024", 20),
	})
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].ID != "good2" || recs[1].ID != "good1" {
		t.Fatalf("valid records out of order: %s, %s", recs[0].ID, recs[1].ID)
	}
	last := recs[2]
	if last.ID != "bad" || last.Valid {
		t.Fatalf("invalid record should sort last: %+v", last)
	}
	if last.DateLabel() != InvalidDate {
		t.Fatalf("DateLabel = %q, want %q", last.DateLabel(), InvalidDate)
	}
	if recs[0].DateLabel() != "03:01:2024" {
		t.Fatalf("DateLabel = %q", recs[0].DateLabel())
	}
}

func TestDisplayIndicesContiguousAndIdempotent(t *testing.T) {
	in := []Timer{
		timer("a", "10:10:2023", 1),
		timer("b", "not a date", 2),
		timer("c", "01:02:2024", 3),
		timer("d", "28:02:2024", 4),
		timer("e", "10:10:2023", 5),
	}
	first := Display(in)
	second := Display(in)
	if len(first) != len(second) {
		t.Fatal("lengths differ between runs")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("run differs at %d: %+v vs %+v", i, first[i], second[i])
		}
		if first[i].Index != i+1 {
			t.Fatalf("index %d at position %d", first[i].Index, i)
		}
		if i > 0 && first[i].Valid && first[i-1].Valid && first[i].Time().After(first[i-1].Time()) {
			t.Fatalf("not descending at %d", i)
		}
	}
}

func TestDisplayEmpty(t *testing.T) {
	if recs := Display(nil); len(recs) != 0 {
		t.Fatalf("expected empty, got %d", len(recs))
	}
}

// ============================================================
// Monthly stats
// ============================================================

func TestMonthlyStatsOrderAndSums(t *testing.T) {
	stats := MonthlyStats([]Timer{
		timer("a", "01:01:2024", 100),
		timer("b", "15:01:2024", 50),
		timer("c", "05:12:2023", 30),
		timer("d", "05:02:2024", 7),
		timer("e", "05:09:2023", 1),
	})
	if len(stats) != 4 {
		t.Fatalf("expected 4 months, got %d", len(stats))
	}
	want := []struct {
		m     time.Month
		y     int
		total int64
	}{
		{time.February, 2024, 7},
		{time.January, 2024, 150},
		{time.December, 2023, 30},
		{time.September, 2023, 1},
	}
	for i, w := range want {
		s := stats[i]
		if s.Month != w.m || s.Year != w.y || s.TotalSeconds != w.total {
			t.Fatalf("stats[%d] = %+v, want %+v", i, s, w)
		}
	}
	if stats[0].MonthName() != "February" {
		t.Fatalf("MonthName = %q", stats[0].MonthName())
	}
}

func TestMonthlyStatsCalendarNotAlphabetical(t *testing.T) {
	// April sorts before August alphabetically; calendar order puts August first.
	stats := MonthlyStats([]Timer{
		timer("a", "01:04:2024", 1),
		timer("b", "01:08:2024", 1),
	})
	if stats[0].Month != time.August || stats[1].Month != time.April {
		t.Fatalf("unexpected order: %v, %v", stats[0].Month, stats[1].Month)
	}
}

func TestMonthlyTotalsMatchRecordTotals(t *testing.T) {
	in := []Timer{
		timer("a", "01:01:2024", 100),
		timer("b", "31:01:2024", 200),
		timer("c", "29:02:2024", 300),
		timer("d", "bogus", 999),
		timer("e", "31:12:2022", 400),
	}
	var recordSum int64
	for _, r := range Display(in) {
		if r.Valid {
			recordSum += r.Duration
		}
	}
	var monthSum int64
	for _, m := range MonthlyStats(in) {
		monthSum += m.TotalSeconds
	}
	if recordSum != monthSum {
		t.Fatalf("record sum %d != month sum %d", recordSum, monthSum)
	}
	if monthSum != 1000 {
		t.Fatalf("expected 1000, got %d", monthSum)
	}
}

// ============================================================
// Totals and lookup
// ============================================================

func TestSummarize(t *testing.T) {
	recs := Display([]Timer{
		timer("a", "01:01:2024", 60),
		timer("b", "01:01:2024", 30),
		timer("c", "02:01:2024", 10),
	})
	tot := Summarize(recs)
	if tot.Days != 2 || tot.Seconds != 100 {
		t.Fatalf("unexpected totals: %+v", tot)
	}
}

func TestFindByDate(t *testing.T) {
	in := []Timer{timer("a", "01:01:2024", 1), timer("b", "02:01:2024", 2)}
	got, ok := FindByDate(in, "02:01:2024")
	if !ok || got.ID != "b" {
		t.Fatalf("FindByDate = %+v, %v", got, ok)
	}
	if _, ok := FindByDate(in, "03:01:2024"); ok {
		t.Fatal("expected miss")
	}
}

// ============================================================
// Formatting
// ============================================================

func TestClock(t *testing.T) {
	cases := map[int64]string{
		0:      "00:00:00",
		59:     "00:00:59",
		3661:   "01:01:01",
		90000:  "25:00:00",
		-5:     "00:00:00",
		150:    "00:02:30",
		359999: "99:59:59",
	}
	for in, want := range cases {
		if got := Clock(in); got != want {
			t.Fatalf("Clock(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]int64{
		"00:00:00": 0,
		"01:01:01": 3661,
		"25:00:00": 90000,
		"02:30":    150,
		" 8:00:00": 28800,
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "90", "1:2:3:4", "00:60:00", "aa:bb", "-1:00", "+1:00:00", "01:+5:00", "1: 2:03", "::"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("ParseClock(%q) should fail", bad)
		}
	}
	if got, _ := ParseClock(Clock(359999)); got != 359999 {
		t.Fatalf("Clock round trip = %d", got)
	}
}

func TestHumanize(t *testing.T) {
	cases := map[int64]string{
		0:    "0 seconds",
		1:    "1 second",
		45:   "45 seconds",
		60:   "1 minute",
		150:  "2 minutes",
		3600: "1 hour",
		7325: "2 hours",
	}
	for in, want := range cases {
		if got := Humanize(in); got != want {
			t.Fatalf("Humanize(%d) = %q, want %q", in, got, want)
		}
	}
}

// ============================================================
// Validation
// ============================================================

func TestNewTimerValidate(t *testing.T) {
	n := NewTimer{Title: " Work ", Duration: 10, Date: "06:05:2024"}
	if err := n.Validate(); err != nil {
		t.Fatal(err)
	}
	if n.Title != "Work" {
		t.Fatalf("title not trimmed: %q", n.Title)
	}
	if n.DayOfWeek != "Monday" {
		t.Fatalf("DayOfWeek = %q, want Monday", n.DayOfWeek)
	}

	bad := []NewTimer{
		{Title: "", Duration: 1, Date: "06:05:2024"},
		{Title: "x", Duration: -1, Date: "06:05:2024"},
		{Title: "x", Duration: 1, Date: ""},
		{Title: "x", Duration: 1, Date: "6/5/2024"},
		{Title: string(make([]byte, 61)), Duration: 1, Date: "06:05:2024"},
	}
	for i, b := range bad {
		b := b
		err := b.Validate()
		if err == nil || !IsValidation(err) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestTimerUpdateValidateAndApply(t *testing.T) {
	date := "07:05:2024"
	dur := int64(42)
	blank := "  "
	u := TimerUpdate{Date: &date, Duration: &dur, Title: &blank}
	if err := u.Validate(); err != nil {
		t.Fatal(err)
	}
	if u.Title != nil {
		t.Fatal("blank title should be dropped")
	}
	if u.DayOfWeek == nil || *u.DayOfWeek != "Tuesday" {
		t.Fatalf("DayOfWeek not derived: %v", u.DayOfWeek)
	}

	tm := timer("a", "01:01:2024", 1)
	u.Apply(&tm)
	if tm.Date != date || tm.Duration != 42 || tm.DayOfWeek != "Tuesday" || tm.Title != "Work" {
		t.Fatalf("unexpected timer after apply: %+v", tm)
	}

	neg := int64(-3)
	if err := (&TimerUpdate{Duration: &neg}).Validate(); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	badDate := "1:1:2024"
	if err := (&TimerUpdate{Date: &badDate}).Validate(); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateSecret(t *testing.T) {
	if err := ValidateSecret("abcd"); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"", "abc"} {
		if err := ValidateSecret(k); !IsValidation(err) {
			t.Fatalf("ValidateSecret(%q) = %v", k, err)
		}
	}
}
