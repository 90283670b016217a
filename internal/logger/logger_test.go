package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf)
	ctx := Put(context.Background(), l)

	got := Get(ctx)
	if got != l {
		t.Fatalf("Get returned %p, want %p", got, l)
	}

	got.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record logged at info level: %q", buf.String())
	}

	got.Level.Set(slog.LevelDebug)
	got.Debug("created edit", "id", "42")
	if !strings.Contains(buf.String(), "created edit") || !strings.Contains(buf.String(), "id=42") {
		t.Fatalf("debug record missing after raising level: %q", buf.String())
	}
}

func TestGetWithoutLogger(t *testing.T) {
	t.Parallel()

	l := Get(context.Background())
	if l == nil || l.Logger == nil {
		t.Fatal("Get must never return nil")
	}
	l.Info("goes nowhere")
}
