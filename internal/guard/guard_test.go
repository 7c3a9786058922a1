package guard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/worklog/internal/record"
)

type recordingDeleter struct {
	calls []string
}

func (r *recordingDeleter) DeleteAll(ctx context.Context, key string) error {
	r.calls = append(r.calls, key)
	return nil
}

func armed(t *testing.T, key string) Guard {
	t.Helper()
	g := New(Obfuscate(key))
	require.NoError(t, g.Arm())
	return g
}

func tickN(g *Guard, n int) {
	for i := 0; i < n; i++ {
		g.Tick()
	}
}

func TestArmRequiresKey(t *testing.T) {
	g := New("")
	assert.ErrorIs(t, g.Arm(), record.ErrNoSecret)
	assert.False(t, g.Armed())
}

func TestCountdownFloorsAtZero(t *testing.T) {
	g := armed(t, "hunter2")
	assert.Equal(t, Countdown, g.Remaining())
	tickN(&g, Countdown+5)
	assert.Equal(t, 0, g.Remaining())
}

func TestTickIgnoredWhenDisarmed(t *testing.T) {
	g := New(Obfuscate("hunter2"))
	g.Tick()
	assert.Equal(t, Countdown, g.Remaining())
}

func TestConfirmBeforeCountdownIsNoop(t *testing.T) {
	g := armed(t, "hunter2")
	tickN(&g, Countdown-3)
	g.SetCandidate("hunter2")

	d := &recordingDeleter{}
	err := g.Destroy(context.Background(), d)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, d.calls)
	assert.True(t, g.Armed())
	assert.Equal(t, 3, g.Remaining())
}

func TestConfirmWithWrongKeyIsNoop(t *testing.T) {
	g := armed(t, "hunter2")
	tickN(&g, Countdown)
	g.SetCandidate("hunter3")

	d := &recordingDeleter{}
	err := g.Destroy(context.Background(), d)
	assert.ErrorIs(t, err, ErrKeyMismatch)
	assert.Empty(t, d.calls)
	assert.True(t, g.Armed(), "mismatch keeps the guard armed")
}

func TestConfirmWithoutCandidate(t *testing.T) {
	g := armed(t, "hunter2")
	tickN(&g, Countdown)
	assert.False(t, g.Ready())
	_, err := g.Confirm()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestDestroySucceeds(t *testing.T) {
	g := armed(t, "hunter2")
	tickN(&g, Countdown)
	g.SetCandidate("hunter2")
	require.True(t, g.Ready())

	d := &recordingDeleter{}
	require.NoError(t, g.Destroy(context.Background(), d))
	assert.Equal(t, []string{"hunter2"}, d.calls)
	assert.False(t, g.Armed())
	assert.Equal(t, Countdown, g.Remaining())
	assert.Empty(t, g.Candidate())
}

func TestCancelResets(t *testing.T) {
	g := armed(t, "hunter2")
	tickN(&g, 4)
	g.SetCandidate("hunter2")
	g.Cancel()

	assert.False(t, g.Armed())
	assert.Equal(t, Countdown, g.Remaining())
	assert.Empty(t, g.Candidate())
	_, err := g.Confirm()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRearmRestartsCountdown(t *testing.T) {
	g := armed(t, "hunter2")
	tickN(&g, Countdown)
	g.SetCandidate("hunter2")
	require.NoError(t, g.Arm())
	assert.Equal(t, Countdown, g.Remaining())
	assert.False(t, g.Ready())
}

// ============================================================
// Obfuscation and key file
// ============================================================

func TestObfuscateRoundTrip(t *testing.T) {
	for _, key := range []string{"abcd", "a much longer secret key than the salt itself", "ключ-💡"} {
		o := Obfuscate(key)
		assert.NotEqual(t, key, o)
		got, err := Reveal(o)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}
	assert.Empty(t, Obfuscate(""))
}

func TestRevealRejectsGarbage(t *testing.T) {
	_, err := Reveal("not-hex")
	assert.Error(t, err)
}

func TestKeyFile(t *testing.T) {
	kf := KeyFile{Path: filepath.Join(t.TempDir(), "nested", "secret.key")}

	got, err := kf.Load()
	require.NoError(t, err)
	assert.Empty(t, got, "missing file means no key")

	require.NoError(t, kf.Save("hunter2"))
	info, err := os.Stat(kf.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, _ := os.ReadFile(kf.Path)
	assert.NotContains(t, string(raw), "hunter2")

	got, err = kf.Load()
	require.NoError(t, err)
	key, err := Reveal(got)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", key)
}
