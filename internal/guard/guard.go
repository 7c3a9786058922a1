// Package guard implements the confirmation protocol in front of
// delete-all: a mandatory countdown plus a matching secret key.
package guard

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/sadopc/worklog/internal/record"
)

// Countdown is the number of ticks that must elapse before confirming.
const Countdown = 10

var (
	ErrNotReady    = errors.New("confirmation not available yet")
	ErrKeyMismatch = errors.New("secret key does not match")
)

// Deleter issues the actual delete-all.
type Deleter interface {
	DeleteAll(ctx context.Context, secretKey string) error
}

// Guard is the destroy-confirmation state machine. The stored key is kept
// obfuscated and only revealed for the comparison.
type Guard struct {
	stored    string // obfuscated
	armed     bool
	remaining int
	candidate string
}

// New returns a disarmed guard for the obfuscated key (empty when none).
func New(obfuscatedKey string) Guard {
	return Guard{stored: obfuscatedKey, remaining: Countdown}
}

// SetStoredKey replaces the obfuscated key the candidate is checked against.
func (g *Guard) SetStoredKey(obfuscated string) { g.stored = obfuscated }

func (g *Guard) HasKey() bool { return g.stored != "" }

func (g *Guard) Armed() bool { return g.armed }

func (g *Guard) Remaining() int { return g.remaining }

func (g *Guard) Candidate() string { return g.candidate }

// Arm starts the countdown.
func (g *Guard) Arm() error {
	if g.stored == "" {
		return record.ErrNoSecret
	}
	g.armed = true
	g.remaining = Countdown
	g.candidate = ""
	return nil
}

// Tick advances the countdown by one unit.
func (g *Guard) Tick() {
	if g.armed && g.remaining > 0 {
		g.remaining--
	}
}

func (g *Guard) SetCandidate(key string) { g.candidate = key }

// Ready reports whether Confirm can succeed on timing grounds.
func (g *Guard) Ready() bool {
	return g.armed && g.remaining == 0 && g.candidate != ""
}

// Confirm checks the countdown and the candidate key. On success the guard
// disarms and returns the key to present to the backend. Any failure leaves
// the guard unchanged.
func (g *Guard) Confirm() (string, error) {
	if !g.Ready() {
		return "", ErrNotReady
	}
	key, err := Reveal(g.stored)
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(g.candidate)) != 1 {
		return "", ErrKeyMismatch
	}
	candidate := g.candidate
	g.Cancel()
	return candidate, nil
}

// Cancel disarms without side effects.
func (g *Guard) Cancel() {
	g.armed = false
	g.remaining = Countdown
	g.candidate = ""
}

// Destroy confirms and then issues delete-all through d.
func (g *Guard) Destroy(ctx context.Context, d Deleter) error {
	key, err := g.Confirm()
	if err != nil {
		return err
	}
	return d.DeleteAll(ctx, key)
}
