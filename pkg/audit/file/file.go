// Package file implements the audit log as a JSON Lines file.
//
// Each entry is one independently parseable JSON object on its own line,
// appended in chronological order and fsynced before Append returns. The
// file is never rewritten or reordered: the only write path is an O_APPEND
// write of a complete line.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/atelierhq/wardenfs/pkg/audit"
)

// FileLog is a durable, append-only audit log backed by a single file.
//
// Thread safety: a mutex serializes appends so concurrent operations never
// interleave partial lines. Queries open an independent read handle and do
// not block appends beyond the line being written.
type FileLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// New opens (or creates) the audit file for appending.
func New(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	return &FileLog{path: path, f: f}, nil
}

// Append durably records one entry.
//
// The entry is marshalled to one JSON line, written with a single write
// call and fsynced. Only after the sync succeeds does Append return, so a
// completed filesystem operation always has its record on disk.
func (l *FileLog) Append(ctx context.Context, entry *audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

// Query scans the file and returns matching entries in append order.
func (l *FileLog) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit file for query: %w", err)
	}
	defer func() { _ = f.Close() }()

	var results []audit.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry audit.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("corrupt audit entry: %w", err)
		}
		if filter.Matches(&entry) {
			results = append(results, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan audit file: %w", err)
	}

	return results, nil
}

// Close closes the append handle.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
