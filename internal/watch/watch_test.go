package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRequiresFiles(t *testing.T) {
	if _, err := New(nil, 0, func(context.Context, string) error { return nil }, nil); err == nil {
		t.Error("expected error with no files")
	}
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "shop.drawio")
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(target, []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls := make(chan string, 10)
	w, err := New([]string{target}, 100*time.Millisecond, func(_ context.Context, path string) error {
		calls <- path
		return errors.New("handler errors are only logged")
	}, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := range 3 {
		if err := os.WriteFile(target, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := os.WriteFile(other, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	abs, _ := filepath.Abs(target)
	select {
	case got := <-calls:
		if got != abs {
			t.Errorf("handler path = %q, want %q", got, abs)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("handler never ran")
	}

	select {
	case got := <-calls:
		t.Errorf("burst of writes ran the handler twice (second call %q)", got)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
