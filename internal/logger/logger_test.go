//go:build !integration

package logger

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/rs/zerolog"
)

func TestNewLogger_Defaults(t *testing.T) {
	cfg := &domain.Config{
		Version: "dev",
		Logging: domain.LoggingConfig{Level: "DEBUG"},
	}
	if New(cfg) == nil {
		t.Fatal("Expected logger to be non-nil")
	}
}

func TestNewLogger_LogDirCreation(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "log")
	cfg := &domain.Config{
		Version: "1.0.0",
		Logging: domain.LoggingConfig{
			Level:          "INFO",
			Path:           tmpDir,
			MaxFileSize:    1,
			MaxBackupCount: 1,
		},
	}
	l, ok := New(cfg).(*DefaultLogger)
	if !ok {
		t.Fatal("Expected DefaultLogger type")
	}
	if l.logDir != tmpDir {
		t.Errorf("Expected logDir %s, got %s", tmpDir, l.logDir)
	}
	if l.lumberjackLog == nil {
		t.Fatal("Expected lumberjackLog to be initialized")
	}
	if !strings.HasPrefix(filepath.Base(l.lumberjackLog.Filename), "degustation-") {
		t.Errorf("Unexpected log filename %s", l.lumberjackLog.Filename)
	}
}

func TestSetLogLevel(t *testing.T) {
	l := New(&domain.Config{Version: "dev", Logging: domain.LoggingConfig{Level: "DEBUG"}}).(*DefaultLogger)
	levels := []struct {
		input string
		want  zerolog.Level
	}{
		{"INFO", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"WARN", zerolog.WarnLevel},
		{"TRACE", zerolog.TraceLevel},
		{"INVALID", zerolog.Disabled},
	}
	for _, tc := range levels {
		l.SetLogLevel(tc.input)
		if l.level != tc.want {
			t.Errorf("SetLogLevel(%q): got %v, want %v", tc.input, l.level, tc.want)
		}
	}
}

func TestLoggerMethods(t *testing.T) {
	l := New(&domain.Config{Version: "dev", Logging: domain.LoggingConfig{Level: "DEBUG"}})
	_ = l.Log()
	_ = l.Error()
	_ = l.Err(errors.New("test"))
	_ = l.Warn()
	_ = l.Info()
	_ = l.Debug()
	_ = l.Trace()
	_ = l.With()
}

func TestRegisterSSEWriter(t *testing.T) {
	l := New(&domain.Config{Version: "dev", Logging: domain.LoggingConfig{Level: "DEBUG"}}).(*DefaultLogger)
	srv := &mockSSE{}
	l.RegisterSSEWriter(srv)

	if srv.lastPublishedTopic != LogsStream {
		t.Errorf("Expected registration to be published on %q, got %q", LogsStream, srv.lastPublishedTopic)
	}
}

func TestCheckRotate_Rotation(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &domain.Config{
		Version: "1.0.0",
		Logging: domain.LoggingConfig{Level: "INFO", Path: tmpDir, MaxFileSize: 1, MaxBackupCount: 1},
	}
	l := New(cfg).(*DefaultLogger)
	l.currentDate = "2000-01-01"
	l.checkRotate()

	expected := logFilename(tmpDir, time.Now().Format("2006-01-02"))
	if l.lumberjackLog.Filename != expected {
		t.Errorf("Expected rotated log filename %s, got %s", expected, l.lumberjackLog.Filename)
	}
}

func TestScheduleRotationCheck_NoLogFile(t *testing.T) {
	l := New(&domain.Config{Version: "dev", Logging: domain.LoggingConfig{Level: "DEBUG"}}).(*DefaultLogger)
	done := make(chan struct{})
	go func() {
		l.scheduleRotationCheck()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("scheduleRotationCheck did not return as expected")
	}
}
