package tailer

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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestTailer(t *testing.T, initial string) (*Tailer, *os.File) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opencanary.log")
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to create source: %v", err)
	}

	tl, err := Open(path, WithPollInterval(10*time.Millisecond), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("failed to open tailer: %v", err)
	}
	t.Cleanup(func() { tl.Close() })

	w, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("failed to open source for writing: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return tl, w
}

func nextWithTimeout(t *testing.T, tl *Tailer) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	line, err := tl.Next(ctx)
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	return line
}

func TestTailer_StartsAtEnd(t *testing.T) {
	tl, w := setupTestTailer(t, "{\"old\":1}\n{\"old\":2}\n")

	w.WriteString("{\"new\":1}\n")
	if got := nextWithTimeout(t, tl); got != `{"new":1}` {
		t.Errorf("expected only new content, got %q", got)
	}
}

func TestTailer_LinesInOrder(t *testing.T) {
	tl, w := setupTestTailer(t, "")

	w.WriteString("a\nb\n")
	w.WriteString("c\n")
	for _, want := range []string{"a", "b", "c"} {
		if got := nextWithTimeout(t, tl); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestTailer_SkipsBlankAndTrims(t *testing.T) {
	tl, w := setupTestTailer(t, "")

	w.WriteString("\n   \n\t\n  {\"x\":1}  \r\n")
	if got := nextWithTimeout(t, tl); got != `{"x":1}` {
		t.Errorf("expected trimmed line, got %q", got)
	}
}

func TestTailer_BuffersPartialLine(t *testing.T) {
	tl, w := setupTestTailer(t, "")

	w.WriteString(`{"dst_port":`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	_, err := tl.Next(ctx)
	cancel()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected partial line to be held back, got %v", err)
	}

	w.WriteString("22}\n")
	if got := nextWithTimeout(t, tl); got != `{"dst_port":22}` {
		t.Errorf("expected joined line, got %q", got)
	}
}

func TestTailer_Cancellation(t *testing.T) {
	tl, _ := setupTestTailer(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tl.Next(ctx)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after cancellation")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.log"), WithLogger(discardLogger()))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWaitForFile(t *testing.T) {
	t.Run("Existing file returns immediately", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "present.log")
		os.WriteFile(path, nil, 0644)
		if err := WaitForFile(context.Background(), path, time.Hour, discardLogger()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Waits until created", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "later.log")
		go func() {
			time.Sleep(30 * time.Millisecond)
			os.WriteFile(path, nil, 0644)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := WaitForFile(ctx, path, 10*time.Millisecond, discardLogger()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "never.log")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		err := WaitForFile(ctx, path, 10*time.Millisecond, discardLogger())
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}
	})
}
