package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"":        zapcore.InfoLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected unknown level error")
	}
}

func TestNewWritesToRotatedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.log")
	log, err := New("info", RotationConfig{Filename: path, MaxSize: 1})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Debug("hidden")
	log.Info("project created")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"message":"project created"`) {
		t.Fatalf("log file missing info entry: %s", content)
	}
	if strings.Contains(content, "hidden") {
		t.Fatalf("log file contains debug entry: %s", content)
	}
}

func TestNewRotatorLimits(t *testing.T) {
	t.Parallel()

	r := newRotator(RotationConfig{Filename: "ledger.log", MaxSize: 10, MaxBackups: 7, MaxAge: 1, Compress: true})
	if r.MaxSize != 10 || r.MaxBackups != 7 || r.MaxAge != 1 || !r.Compress {
		t.Fatalf("rotator = %+v", r)
	}

	r = newRotator(RotationConfig{Filename: "ledger.log"})
	if r.MaxSize != 100 || r.MaxBackups != 3 || r.MaxAge != 28 || r.Compress {
		t.Fatalf("default rotator = %+v", r)
	}
}
