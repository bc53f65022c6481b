package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerInitWithFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat(FormatJSON, &buf); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}

	Get().Info(context.Background(), "settled", String("event_id", "e-1"), Int64("paid", 3))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "settled" {
		t.Errorf("unexpected msg: %v", line["msg"])
	}
	if line["event_id"] != "e-1" {
		t.Errorf("unexpected event_id: %v", line["event_id"])
	}
	if src, _ := line["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("source should point at the caller, got %q", src)
	}

	if err := InitWithFormat("xml", &buf); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat(FormatText, &buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug line missing after SetLevelString(debug): %q", buf.String())
	}

	if err := SetLevelString("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
	_ = SetLevelString("info")
}

func TestLoggerNamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat(FormatText, &buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	l := Named("settlement").With(String("tick", "1"))
	l.Warn(context.Background(), "slow", Duration("took", 2*time.Second), Error(errors.New("boom")), Bool("retry", true))

	out := buf.String()
	for _, want := range []string{"settlement.", "tick=1", "boom", "retry=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
