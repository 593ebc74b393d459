package journal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/V4T54L/honeytail/internal/domain"
)

const (
	filePerm = 0644
	dirPerm  = 0755
)

// Journal is an append-only JSON-lines file of normalized events. Every
// Append is fsynced before it returns.
type Journal struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// Open creates the parent directory if needed and opens path for appending.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create journal directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	j := &Journal{
		path:   path,
		logger: logger.With("component", "journal"),
		file:   f,
	}
	j.logger.Info("Opened journal", "path", path)
	return j, nil
}

// Append writes one event as a newline-terminated JSON line and syncs it.
func (j *Journal) Append(ctx context.Context, event domain.NormalizedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for journal: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return errors.New("journal is closed")
	}
	if _, err := j.file.Write(data); err != nil {
		return fmt.Errorf("failed to write to journal: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	return nil
}

// Replay reads the journal from the start and calls handler for each event.
// Malformed lines are skipped; a trailing line without newline is ignored as
// a possibly partial write.
func (j *Journal) Replay(ctx context.Context, handler func(event domain.NormalizedEvent) error) error {
	f, err := os.Open(j.path)
	if err != nil {
		return fmt.Errorf("failed to open journal %s for replay: %w", j.path, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(line) > 0 {
					j.logger.Warn("Ignoring partial trailing journal line", "line_no", lineNo)
				}
				return nil
			}
			return fmt.Errorf("failed to read journal: %w", err)
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var event domain.NormalizedEvent
		if err := dec.Decode(&event); err != nil {
			j.logger.Warn("Failed to unmarshal event from journal, skipping", "error", err, "line_no", lineNo)
			continue
		}
		if err := handler(event); err != nil {
			return fmt.Errorf("replay handler failed: %w", err)
		}
	}
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
