package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock renders seconds as HH:MM:SS. Hours are not capped at 24.
func Clock(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseClock reads "HH:MM:SS" or "MM:SS" back into seconds.
func ParseClock(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("duration %q: want HH:MM:SS", s)
	}
	var secs int64
	for i, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return 0, fmt.Errorf("duration %q: want HH:MM:SS", s)
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("duration %q: want HH:MM:SS", s)
		}
		// Only the leading field may exceed 59.
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("duration %q: field %q out of range", s, p)
		}
		secs = secs*60 + n
	}
	return secs, nil
}

// Humanize renders seconds using only the largest non-zero unit,
// e.g. "3 hours", "1 minute", "0 seconds".
func Humanize(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	switch {
	case h > 0:
		return plural(h, "hour")
	case m > 0:
		return plural(m, "minute")
	default:
		return plural(s, "second")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Hours renders seconds as fractional hours, e.g. "1.5h".
func Hours(secs int64) string {
	return fmt.Sprintf("%.1fh", float64(secs)/3600)
}
