package tui

import (
	"context"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sadopc/worklog/internal/cache"
	"github.com/sadopc/worklog/internal/guard"
	"github.com/sadopc/worklog/internal/record"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewHistory
	viewReports
	viewSettings
)

var viewNames = []string{"Timer", "History", "Reports", "Settings"}

// defaultDailyGoal is used until settings load, in seconds.
const defaultDailyGoal = 8 * 3600

// Preferences stores UI settings. Both the local store and the API client
// implement it.
type Preferences interface {
	GetAllSettings(ctx context.Context) ([]record.Setting, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Deps is everything the TUI needs from the outside.
type Deps struct {
	Ctx       context.Context
	Syncer    *cache.Syncer
	Prefs     Preferences
	KeyFile   guard.KeyFile
	Log       *zap.Logger
	Now       func() time.Time
	ExportDir string
}

// env is shared read-only by every sub-model.
type env struct {
	ctx       context.Context
	sync      *cache.Syncer
	prefs     Preferences
	keyFile   guard.KeyFile
	log       *zap.Logger
	now       func() time.Time
	exportDir string
}

func newEnv(d Deps) *env {
	e := &env{
		ctx:       d.Ctx,
		sync:      d.Syncer,
		prefs:     d.Prefs,
		keyFile:   d.KeyFile,
		log:       d.Log,
		now:       d.Now,
		exportDir: d.ExportDir,
	}
	if e.ctx == nil {
		e.ctx = context.Background()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// --- Messages ---

type tickMsg time.Time

type statusMsg struct {
	text    string
	isError bool
}

type timersLoadedMsg struct {
	timers []record.Timer
	err    error
}

type sessionSavedMsg struct {
	timer *record.Timer
	err   error
}

type sessionResetMsg struct{}

// mutationDoneMsg reports the end of an add, edit or delete from History.
type mutationDoneMsg struct {
	text string
	err  error
}

type destroyDoneMsg struct {
	err error
}

type userLoadedMsg struct {
	user *record.User
	err  error
}

type secretSavedMsg struct {
	obfuscated string
	err        error
}

type settingsDataMsg struct {
	settings []record.Setting
	err      error
}

type noticeMsg cache.Notice

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func errStatus(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: true} }
}

func infoStatus(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func secsToHours(s string) string {
	if secs, err := strconv.Atoi(s); err == nil {
		return strconv.FormatFloat(float64(secs)/3600, 'f', 1, 64)
	}
	return s
}

func hoursToSecs(s string) string {
	if hours, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.Itoa(int(hours * 3600))
	}
	return s
}
