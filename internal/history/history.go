// Package history persists the utterance log: every spoken line is appended
// to a plain text file with a timestamp, and the tail is replayed into the
// UI on startup.
package history

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Log is an append-only, timestamped utterance log backed by a file.
type Log struct {
	mu   sync.Mutex
	path string
}

// New creates a log backed by the given file path. The file is created on
// first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Append writes a timestamped entry and returns the line as stored.
func (l *Log) Append(text string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05"), text)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return "", fmt.Errorf("writing history entry: %w", err)
	}
	return line, nil
}

// Tail returns the last n entries, oldest first. A missing file yields an
// empty slice — a fresh install has no history yet.
func (l *Log) Tail(n int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
