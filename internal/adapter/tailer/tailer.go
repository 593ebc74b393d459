package tailer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultWaitInterval = 1 * time.Second
)

// WaitForFile blocks until path exists, checking once per interval.
func WaitForFile(ctx context.Context, path string, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		interval = defaultWaitInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logged := false
	for {
		_, err := os.Stat(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat source %s: %w", path, err)
		}
		if !logged {
			logger.Info("waiting for source file to appear", "path", path)
			logged = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Option configures a Tailer.
type Option func(*Tailer)

// WithPollInterval sets how long Next sleeps when no new data is available.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tailer) {
		if d > 0 {
			t.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tailer) { t.logger = logger }
}

// Tailer follows a single growing file from its end, yielding complete lines.
type Tailer struct {
	path         string
	file         *os.File
	reader       *bufio.Reader
	partial      strings.Builder
	pollInterval time.Duration
	watcher      *fsnotify.Watcher
	logger       *slog.Logger
}

// Open opens path and positions the reader at its current end. Content
// already in the file is never returned.
func Open(path string, opts ...Option) (*Tailer, error) {
	t := &Tailer{
		path:         path,
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "tailer", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek to end of %s: %w", path, err)
	}
	t.file = f
	t.reader = bufio.NewReader(f)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.logger.Warn("file watcher unavailable, falling back to polling", "error", err)
		return t, nil
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		t.logger.Warn("could not watch source file, falling back to polling", "error", err)
		return t, nil
	}
	t.watcher = watcher
	return t, nil
}

// Next blocks until a complete, non-blank line has been appended and returns
// it with surrounding whitespace trimmed. It returns ctx.Err() on cancellation.
func (t *Tailer) Next(ctx context.Context) (string, error) {
	for {
		chunk, err := t.reader.ReadString('\n')
		switch {
		case err == nil:
			t.partial.WriteString(chunk)
			line := strings.TrimSpace(t.partial.String())
			t.partial.Reset()
			if line == "" {
				continue
			}
			return line, nil
		case errors.Is(err, io.EOF):
			t.partial.WriteString(chunk)
			if err := t.wait(ctx); err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("failed to read source %s: %w", t.path, err)
		}
	}
}

// wait sleeps for one poll interval or until the watcher reports activity.
func (t *Tailer) wait(ctx context.Context) error {
	timer := time.NewTimer(t.pollInterval)
	defer timer.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if t.watcher != nil {
		events = t.watcher.Events
		errs = t.watcher.Errors
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	case <-events:
	case err := <-errs:
		if err != nil {
			t.logger.Debug("file watcher error", "error", err)
		}
	}
	return nil
}

// Close releases the file and the watcher.
func (t *Tailer) Close() error {
	if t.watcher != nil {
		t.watcher.Close()
	}
	return t.file.Close()
}
