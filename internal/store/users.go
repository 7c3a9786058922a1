package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sadopc/worklog/internal/record"
	"golang.org/x/crypto/bcrypt"
)

// GetUser returns the single user, or nil when none has been set up.
func (s *Store) GetUser(ctx context.Context) (*record.User, error) {
	u := &record.User{}
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM users WHERE singleton = 1`,
	).Scan(&u.ID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.HasSecret = true
	u.CreatedAt = parseStamp(createdAt)
	u.UpdatedAt = parseStamp(updatedAt)
	return u, nil
}

// SetUserSecret creates the user or overwrites the existing secret.
func (s *Store) SetUserSecret(ctx context.Context, secretKey string) error {
	if err := record.ValidateSecret(secretKey); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secretKey), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	now := s.stamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, singleton, secret_hash, created_at, updated_at) VALUES (?, 1, ?, ?, ?)
		 ON CONFLICT(singleton) DO UPDATE SET secret_hash = excluded.secret_hash, updated_at = excluded.updated_at`,
		newID(), string(hash), now, now,
	)
	if err != nil {
		return fmt.Errorf("set user secret: %w", err)
	}
	return nil
}

func (s *Store) secretHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT secret_hash FROM users WHERE singleton = 1`).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", record.ErrNoSecret
	}
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return hash, nil
}
