package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spiroexport/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")

	cfg := config.LoggingConfig{
		Level:    "info",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Logger is nil")
	}
	if GetLogger() != logger {
		t.Error("GetLogger did not return the initialized logger")
	}

	logger.Info("test message", "key", "value")

	// Close log file to allow reading on Windows
	CloseLogFile()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(content, &logEntry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	if logEntry["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got %v", logEntry["msg"])
	}
	if logEntry["key"] != "value" {
		t.Errorf("Expected key='value', got %v", logEntry["key"])
	}
	if logEntry["level"] != "INFO" {
		t.Errorf("Expected level='INFO', got %v", logEntry["level"])
	}
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	if err != nil {
		t.Fatalf("Second initialization failed: %v", err)
	}
	if first != second {
		t.Error("Expected the same logger from repeated initialization")
	}
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug")

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.InfoContext(ctx, "test with trace")
	logger.InfoContext(context.Background(), "test without trace")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	var withTrace, withoutTrace map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &withTrace); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &withoutTrace); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}

	if withTrace["trace_id"] != "test-trace-123" {
		t.Errorf("Expected trace_id='test-trace-123', got %v", withTrace["trace_id"])
	}
	if _, ok := withoutTrace["trace_id"]; ok {
		t.Error("Did not expect trace_id without a traced context")
	}
}

func TestTraceIDSurvivesWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(NewLogger(&buf, "info"), "exporter")

	ctx := WithTraceID(context.Background(), "abc")
	logger.InfoContext(ctx, "exported")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}
	if entry["component"] != "exporter" {
		t.Errorf("Expected component='exporter', got %v", entry["component"])
	}
	if entry["trace_id"] != "abc" {
		t.Errorf("Expected trace_id='abc', got %v", entry["trace_id"])
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		warnSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)

			logger.Debug("debug line")
			logger.Warn("warn line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.debugSeen {
				t.Errorf("debug visible = %v, want %v", got, tt.debugSeen)
			}
			if got := strings.Contains(out, "warn line"); got != tt.warnSeen {
				t.Errorf("warn visible = %v, want %v", got, tt.warnSeen)
			}
		})
	}
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	if len(id) != 36 {
		t.Errorf("Expected a UUID trace ID, got %q", id)
	}

	same := EnsureTraceID(ctx)
	if GetTraceID(same) != id {
		t.Error("EnsureTraceID replaced an existing trace ID")
	}
}
