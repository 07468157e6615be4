package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLogger_JSONComponent(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Component = ComponentWorker
	cfg.Handler = cfg.NewHandler(&buf)

	New(cfg).Info("hello", FieldHabitID, "h1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentWorker || rec[FieldHabitID] != "h1" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = slog.LevelWarn
	cfg.Handler = cfg.NewHandler(&buf)

	l := New(cfg)
	l.Info("dropped")
	l.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogger_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifedash.log")
	cfg := DefaultConfig()
	cfg.File = path

	New(cfg).Error("to file")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "to file") {
		t.Errorf("log file missing record: %q", b)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Handler = cfg.NewHandler(&buf)
	base := New(cfg)

	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("request id missing: %q", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Errorf("component = %q", l.Component())
	}
}

func TestStructuredLogger_HTTPLevels(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Handler = cfg.NewHandler(&buf)
	sl := NewStructuredLogger(New(cfg))

	r := httptest.NewRequest(http.MethodGet, "/api/habits", nil)
	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	sl.LogError(context.Background(), "boom", errors.New("disk"), ComponentStorage, OpRead, nil)

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=503") {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(out, "error=disk") {
		t.Errorf("error field missing: %q", out)
	}
}
