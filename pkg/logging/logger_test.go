package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestLoggerWritesSessionLog(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "sess-1")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	if err := logger.Info(CategoryProvider, "provider_available", "comfy available", map[string]any{"provider": "comfy"}); err != nil {
		t.Fatalf("Info: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "sessions", "sess-1.jsonl"))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", events[0].SessionID)
	}
	if events[0].Category != CategoryProvider {
		t.Errorf("Category = %q, want provider", events[0].Category)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("Timestamp should be set automatically")
	}
}

func TestLoggerRoutesErrorsAndCosts(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "sess-2")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	logger.Error(CategoryGeneration, "generation_failed", "all providers failed", nil)
	logger.Info(CategoryCost, "cost_recorded", "image cost", map[string]any{"usd": 0.04})

	errEvents := readEvents(t, filepath.Join(dir, "errors.jsonl"))
	if len(errEvents) != 1 || errEvents[0].EventType != "generation_failed" {
		t.Fatalf("error log = %+v, want one generation_failed event", errEvents)
	}

	costEvents := readEvents(t, filepath.Join(dir, "costs.jsonl"))
	if len(costEvents) != 1 || costEvents[0].EventType != "cost_recorded" {
		t.Fatalf("cost log = %+v, want one cost_recorded event", costEvents)
	}
}

func TestLoggerMinLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "sess-3")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	// Debug is below the default info threshold
	logger.Debug(CategoryNetwork, "request", "GET /models", nil)
	events := readEvents(t, filepath.Join(dir, "sessions", "sess-3.jsonl"))
	if len(events) != 0 {
		t.Fatalf("debug event should be suppressed, got %d events", len(events))
	}

	logger.SetMinLevel(LevelDebug)
	logger.Debug(CategoryNetwork, "request", "GET /models", nil)
	events = readEvents(t, filepath.Join(dir, "sessions", "sess-3.jsonl"))
	if len(events) != 1 {
		t.Fatalf("debug event should be written after SetMinLevel, got %d", len(events))
	}
}
