package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/worklog/internal/config"
	"github.com/sadopc/worklog/internal/guard"
	"github.com/sadopc/worklog/internal/record"
	"github.com/sadopc/worklog/internal/store"
)

// testHome isolates the config dir (and so the key file) under t.TempDir.
func testHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("WORKLOG_REMOTE", "")
	t.Setenv("WORKLOG_DB", "")
	return home
}

func seedDB(t *testing.T, timers ...record.NewTimer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worklog.db")
	s, err := store.New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	for _, n := range timers {
		if _, err := s.CreateTimer(context.Background(), n); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

// execute runs rootCmd. Flag variables are package globals, so they are
// reset before every run.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, dbPath, remoteURL, verbose = "", "", "", false
	exportFormat, exportOut = "pdf", ""
	secretKeyFlag, wipeKey, serveAddr = "", "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := rootCmd.Execute()
	return out.String(), err
}

// ============================================================
// stats
// ============================================================

func TestWriteStats(t *testing.T) {
	now := time.Date(2024, time.May, 5, 12, 0, 0, 0, time.Local)
	var buf bytes.Buffer
	writeStats(&buf, []record.Timer{
		{ID: "a", Duration: 3600, Date: "05:05:2024"},
		{ID: "b", Duration: 1800, Date: "30:04:2024"},
		{ID: "c", Duration: 60, Date: "broken"},
	}, now)

	out := buf.String()
	for _, want := range []string{"May 2024", "April 2024", "01:00:00", "Days worked: 3", "Today:       01:00:00", "1 hour"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "May 2024") > strings.Index(out, "April 2024") {
		t.Fatal("newest month should come first")
	}
}

func TestWriteStatsEmpty(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, nil, time.Now())
	if !strings.Contains(buf.String(), "No records yet") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestStatsCommand(t *testing.T) {
	testHome(t)
	db := seedDB(t, record.NewTimer{Title: "Work", Duration: 150, Date: "05:05:2024"})

	out, err := execute(t, "stats", "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "May 2024") || !strings.Contains(out, "00:02:30") {
		t.Fatalf("stats output:\n%s", out)
	}
}

// ============================================================
// export
// ============================================================

func TestExportCommand(t *testing.T) {
	testHome(t)
	db := seedDB(t,
		record.NewTimer{Title: "Work", Duration: 150, Date: "05:05:2024"},
		record.NewTimer{Title: "Work", Duration: 60, Date: "04:05:2024"},
	)
	dest := filepath.Join(t.TempDir(), "report.csv")

	out, err := execute(t, "export", "--db", db, "--format", "csv", "--out", dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Exported 2 records") {
		t.Fatalf("output: %s", out)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "05:05:2024") {
		t.Fatalf("csv missing record:\n%s", data)
	}
}

func TestExportCommandBadFormat(t *testing.T) {
	testHome(t)
	db := seedDB(t)
	if _, err := execute(t, "export", "--db", db, "--format", "docx", "--out", ""); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestExportPath(t *testing.T) {
	now := time.Date(2024, time.May, 5, 0, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	if got := exportPath("", "pdf", now); got != "worklog-2024-05-05.pdf" {
		t.Fatalf("default = %q", got)
	}
	if got := exportPath(dir, "csv", now); got != filepath.Join(dir, "worklog-2024-05-05.csv") {
		t.Fatalf("dir = %q", got)
	}
	if got := exportPath(filepath.Join(dir, "x.json"), "json", now); got != filepath.Join(dir, "x.json") {
		t.Fatalf("file = %q", got)
	}
}

// ============================================================
// secret + wipe
// ============================================================

func TestSecretSetAndWipe(t *testing.T) {
	testHome(t)
	wipeTick = time.Millisecond
	t.Cleanup(func() { wipeTick = time.Second })

	db := seedDB(t, record.NewTimer{Title: "Work", Duration: 150, Date: "05:05:2024"})

	if _, err := execute(t, "secret", "set", "--db", db, "--key", "hunter2"); err != nil {
		t.Fatal(err)
	}
	kf, err := guard.DefaultKeyFile()
	if err != nil {
		t.Fatal(err)
	}
	if stored, _ := kf.Load(); stored == "" {
		t.Fatal("secret set should write the key file")
	}

	out, err := execute(t, "secret", "status", "--db", db)
	if err != nil || !strings.Contains(out, "backend: set") {
		t.Fatalf("status = %q, %v", out, err)
	}

	if _, err := execute(t, "wipe", "--db", db, "--key", "wrong"); err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("wrong key = %v", err)
	}

	if _, err := execute(t, "wipe", "--db", db, "--key", "hunter2"); err != nil {
		t.Fatal(err)
	}
	s, err := store.New(db)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	timers, _ := s.ListTimers(context.Background())
	if len(timers) != 0 {
		t.Fatalf("wipe left %d records", len(timers))
	}
}

func TestWipeWithoutKeyFile(t *testing.T) {
	testHome(t)
	db := seedDB(t)
	_, err := execute(t, "wipe", "--db", db, "--key", "hunter2")
	if err == nil || !strings.Contains(err.Error(), "secret set") {
		t.Fatalf("expected a hint to set a key, got %v", err)
	}
}

func TestCountdownCancel(t *testing.T) {
	g := guard.New(guard.Obfuscate("hunter2"))
	if err := g.Arm(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := countdown(ctx, &g, make(chan time.Time), &buf); err == nil {
		t.Fatal("cancelled countdown should fail")
	}
	if g.Armed() {
		t.Fatal("cancelled countdown should disarm")
	}
}

func TestCountdownReachesZero(t *testing.T) {
	g := guard.New(guard.Obfuscate("hunter2"))
	g.Arm()
	tick := make(chan time.Time, guard.Countdown)
	for i := 0; i < guard.Countdown; i++ {
		tick <- time.Time{}
	}

	var buf bytes.Buffer
	if err := countdown(context.Background(), &g, tick, &buf); err != nil {
		t.Fatal(err)
	}
	if g.Remaining() != 0 {
		t.Fatalf("remaining = %d", g.Remaining())
	}
}

// ============================================================
// serve
// ============================================================

func TestHTTPServerHandler(t *testing.T) {
	cfg = config.Default()
	logger = zap.NewNop()

	s, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	srv := httptest.NewServer(newHTTPServer(s, "127.0.0.1:0").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}
}

func TestServeRejectsRemote(t *testing.T) {
	testHome(t)
	_, err := execute(t, "serve", "--remote", "http://127.0.0.1:1")
	if err == nil || !strings.Contains(err.Error(), "local database") {
		t.Fatalf("expected local database error, got %v", err)
	}
}
