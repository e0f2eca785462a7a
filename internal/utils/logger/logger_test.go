package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerBeforeInitIsNoop(t *testing.T) {
	prev := global
	global = nil
	t.Cleanup(func() { global = prev })

	if Logger() == nil {
		t.Fatal("Logger() must never return nil")
	}
	Logger().Infof("dropped")
}

func TestInitReplacesGlobalLogger(t *testing.T) {
	prev := global
	t.Cleanup(func() { global = prev })

	core, logs := observer.New(zapcore.DebugLevel)
	Init(zap.New(core).Sugar())

	Logger().Warnf("module %s not installed", "numpy")

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(entries))
	}
	if entries[0].Message != "module numpy not installed" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupWithFileSink(t *testing.T) {
	prev := global
	t.Cleanup(func() {
		global = prev
		_ = SetLogLevel("info")
	})

	logFile := filepath.Join(t.TempDir(), "lume-model.log")
	if err := Setup("debug", logFile); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if Level() != "debug" {
		t.Errorf("expected debug level, got %s", Level())
	}

	Logger().Infof("hello file")
	_ = Logger().Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file missing entry, got: %s", data)
	}
}

func TestStringListReportWriteToFile(t *testing.T) {
	dir := t.TempDir()
	report := NewStringListReport("test lume_model")
	report.Add("step %d: %s", 1, "ok")
	report.Add("step %d: %s", 2, "failed")

	path, err := report.WriteToFile(dir)
	if err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}
	if filepath.Base(path) != "report-test_lume_model.txt" {
		t.Errorf("unexpected report name %s", filepath.Base(path))
	}
	if len(report.Items) != 0 {
		t.Errorf("expected items to be cleared, got %d", len(report.Items))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.Contains(string(data), "step 2: failed") {
		t.Errorf("report missing entry: %s", data)
	}
}
