package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sadopc/worklog/internal/record"
	"golang.org/x/crypto/bcrypt"
)

const timerColumns = `id, title, duration, date, day_of_week, completed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimer(row rowScanner) (*record.Timer, error) {
	t := &record.Timer{}
	var completed int
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Title, &t.Duration, &t.Date, &t.DayOfWeek, &completed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.Completed = completed == 1
	t.CreatedAt = parseStamp(createdAt)
	t.UpdatedAt = parseStamp(updatedAt)
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ListTimers returns every timer, newest created first.
func (s *Store) ListTimers(ctx context.Context) ([]record.Timer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+timerColumns+` FROM timers ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list timers: %w", err)
	}
	defer rows.Close()

	var timers []record.Timer
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timer: %w", err)
		}
		timers = append(timers, *t)
	}
	return timers, rows.Err()
}

// GetTimer returns the timer with id, or record.ErrNotFound.
func (s *Store) GetTimer(ctx context.Context, id string) (*record.Timer, error) {
	t, err := scanTimer(s.db.QueryRowContext(ctx, `SELECT `+timerColumns+` FROM timers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get timer %s: %w", id, record.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get timer %s: %w", id, err)
	}
	return t, nil
}

// CreateTimer validates n and inserts it under a fresh id.
func (s *Store) CreateTimer(ctx context.Context, n record.NewTimer) (*record.Timer, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	id := newID()
	now := s.stamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timers (id, title, duration, date, day_of_week, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, n.Title, n.Duration, n.Date, n.DayOfWeek, boolInt(n.Completed), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert timer: %w", err)
	}
	return s.GetTimer(ctx, id)
}

// UpdateTimer applies u to the timer with id.
func (s *Store) UpdateTimer(ctx context.Context, id string, u record.TimerUpdate) (*record.Timer, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	t, err := s.GetTimer(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Apply(t)

	_, err = s.db.ExecContext(ctx,
		`UPDATE timers SET title = ?, duration = ?, date = ?, day_of_week = ?, completed = ?, updated_at = ?
		 WHERE id = ?`,
		t.Title, t.Duration, t.Date, t.DayOfWeek, boolInt(t.Completed), s.stamp(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update timer %s: %w", id, err)
	}
	return s.GetTimer(ctx, id)
}

// DeleteTimer removes one timer.
func (s *Store) DeleteTimer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete timer %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("delete timer %s: %w", id, record.ErrNotFound)
	}
	return nil
}

// DeleteAllTimers wipes every timer once secretKey matches the stored hash.
func (s *Store) DeleteAllTimers(ctx context.Context, secretKey string) error {
	hash, err := s.secretHash(ctx)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secretKey)); err != nil {
		return fmt.Errorf("delete all timers: %w", record.ErrSecretMismatch)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM timers`); err != nil {
		return fmt.Errorf("delete all timers: %w", err)
	}
	return nil
}
