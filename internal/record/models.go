package record

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLen is the longest title a timer may carry.
const MaxTitleLen = 60

// MinSecretLen is the shortest accepted secret key.
const MinSecretLen = 4

// Timer is one persisted day of work.
type Timer struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Duration  int64     `json:"duration"` // seconds
	Date      string    `json:"date"`     // DD:MM:YYYY
	DayOfWeek string    `json:"dayOfWeek"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewTimer holds the fields needed to create a Timer.
type NewTimer struct {
	Title     string `json:"title"`
	Duration  int64  `json:"duration"`
	Date      string `json:"date"`
	DayOfWeek string `json:"dayOfWeek"`
	Completed bool   `json:"completed"`
}

// Validate checks required fields, the duration sign and the date format.
// An empty DayOfWeek is filled in from the date.
func (n *NewTimer) Validate() error {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return &ValidationError{Field: "title", Msg: "is required"}
	}
	if utf8.RuneCountInString(n.Title) > MaxTitleLen {
		return &ValidationError{Field: "title", Msg: "cannot be more than 60 characters"}
	}
	if n.Duration < 0 {
		return &ValidationError{Field: "duration", Msg: "cannot be negative"}
	}
	if n.Date == "" {
		return &ValidationError{Field: "date", Msg: "is required"}
	}
	d, err := ParseDate(n.Date)
	if err != nil {
		return &ValidationError{Field: "date", Msg: "must be DD:MM:YYYY"}
	}
	if n.DayOfWeek == "" {
		n.DayOfWeek = DayName(d)
	}
	return nil
}

// TimerUpdate is a partial update; nil fields are left untouched.
type TimerUpdate struct {
	Title     *string `json:"title,omitempty"`
	Duration  *int64  `json:"duration,omitempty"`
	Date      *string `json:"date,omitempty"`
	DayOfWeek *string `json:"dayOfWeek,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Validate applies the same rules as NewTimer.Validate to the set fields.
func (u *TimerUpdate) Validate() error {
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		if t == "" {
			// Blank titles keep the stored one.
			u.Title = nil
		} else if utf8.RuneCountInString(t) > MaxTitleLen {
			return &ValidationError{Field: "title", Msg: "cannot be more than 60 characters"}
		} else {
			u.Title = &t
		}
	}
	if u.Duration != nil && *u.Duration < 0 {
		return &ValidationError{Field: "duration", Msg: "cannot be negative"}
	}
	if u.Date != nil {
		d, err := ParseDate(*u.Date)
		if err != nil {
			return &ValidationError{Field: "date", Msg: "must be DD:MM:YYYY"}
		}
		if u.DayOfWeek == nil || *u.DayOfWeek == "" {
			day := DayName(d)
			u.DayOfWeek = &day
		}
	}
	return nil
}

// Apply copies the set fields onto t.
func (u TimerUpdate) Apply(t *Timer) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Duration != nil {
		t.Duration = *u.Duration
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.DayOfWeek != nil {
		t.DayOfWeek = *u.DayOfWeek
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
}

// User is the single owner of the data. The secret itself is never exposed.
type User struct {
	ID        string    `json:"id"`
	HasSecret bool      `json:"hasSecret"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidateSecret enforces the minimum secret length.
func ValidateSecret(key string) error {
	if key == "" {
		return &ValidationError{Field: "secretKey", Msg: "is required"}
	}
	if utf8.RuneCountInString(key) < MinSecretLen {
		return &ValidationError{Field: "secretKey", Msg: "must be at least 4 characters long"}
	}
	return nil
}

// DisplayRecord is a Timer projected for display, numbered after sorting.
type DisplayRecord struct {
	Index     int
	ID        string
	Date      string
	DayOfWeek string
	Duration  int64
	Valid     bool // Date parsed as DD:MM:YYYY

	parsed time.Time
}

// DateLabel returns the date, or "Invalid Date" when it did not parse.
func (d DisplayRecord) DateLabel() string {
	if !d.Valid {
		return InvalidDate
	}
	return d.Date
}

// Time returns the parsed date; zero when the date is invalid.
func (d DisplayRecord) Time() time.Time { return d.parsed }

// MonthStat is the total tracked in one calendar month.
type MonthStat struct {
	Month        time.Month
	Year         int
	TotalSeconds int64
}

// MonthName returns the English month name.
func (m MonthStat) MonthName() string { return m.Month.String() }

// Totals are the footer figures of the history table.
type Totals struct {
	Days    int
	Seconds int64
}

// Setting is one user preference.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Setting keys.
const (
	SettingSessionTitle = "session_title"
	SettingDailyGoal    = "daily_goal" // seconds
)
