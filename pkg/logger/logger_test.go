package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"instabot/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug pretty", cfg: &config.LoggingConfig{Level: "debug", Pretty: true}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "invalid"}, wantErr: true},
		{name: "with file", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "bot.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"loud", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestZerologFields(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf))

	l.WithField("username", "alice").
		WithError(errors.New("boom")).
		InfoWithFields("followed", map[string]interface{}{
			"count": 3,
			"pause": 10 * time.Minute,
		})

	output := buf.String()
	for _, want := range []string{`"username":"alice"`, `"error":"boom"`, `"count":3`, `"pause":"10m0s"`, `"message":"followed"`} {
		if !strings.Contains(output, want) {
			t.Errorf("output %s missing %s", output, want)
		}
	}
}

func TestTestLoggerSharesCapture(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("seed", "bob").WithError(errors.New("bad page"))
	child.Warn("seed failed")
	tl.Info("done")

	messages := tl.GetMessages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Fields["seed"] != "bob" || messages[0].Error == nil {
		t.Errorf("child context lost: %+v", messages[0])
	}
	if !tl.HasMessage("done") || tl.HasError() {
		t.Error("unexpected capture state")
	}

	tl.Clear()
	if len(tl.GetMessages()) != 0 {
		t.Error("Clear() should drop messages")
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithFields(map[string]interface{}{"a": 1}).WithError(errors.New("x")).Error("ignored")
}
