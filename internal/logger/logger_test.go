package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLogFilePathCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	got, err := logFilePath(Options{Dir: dir}.withDefaults())
	if err != nil {
		t.Fatalf("resolve log path failed: %v", err)
	}
	if filepath.Base(got) != "app.log" {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestReleaseWritesJSONAndHonorsLevel(t *testing.T) {
	dir := t.TempDir()
	log := New("release", Options{Dir: dir, Filename: "release.log", Level: "warn"})
	log.Sugar().Infow("reservation_created", "reservation_no", "r-0")
	log.Sugar().Warnw("reservation_expired", "reservation_no", "r-1")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(dir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	text := string(content)
	if strings.Contains(text, "reservation_created") {
		t.Fatalf("info entry should be filtered at warn level: %s", text)
	}
	for _, want := range []string{`"message":"reservation_expired"`, `"service":"courtline"`, `"level":"warn"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %s in %s", want, text)
		}
	}
}

func TestDebugModeDoesNotWriteFile(t *testing.T) {
	dir := t.TempDir()
	log := New("debug", Options{Dir: dir, Filename: "debug.log"})
	log.Debug("seat_lock_acquired")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(dir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw   string
		debug bool
		want  zapcore.Level
	}{
		{"", false, zapcore.InfoLevel},
		{"", true, zapcore.DebugLevel},
		{"error", false, zapcore.ErrorLevel},
		{" WARN ", true, zapcore.WarnLevel},
		{"verbose", false, zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.raw, tc.debug).Level(); got != tc.want {
			t.Fatalf("parseLevel(%q, %v) want %s got %s", tc.raw, tc.debug, tc.want, got)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{MaxSizeMB: 3}.withDefaults()
	if o.MaxSizeMB != 3 || o.MaxBackups != 7 || o.MaxAgeDays != 30 || o.Filename != "app.log" {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}
