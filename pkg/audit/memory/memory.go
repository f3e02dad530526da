// Package memory implements an in-memory audit log for tests and ephemeral
// deployments. Entries live only for the process lifetime; the append-only
// and ordering contracts are identical to the durable implementations.
package memory

import (
	"context"
	"sync"

	"github.com/atelierhq/wardenfs/pkg/audit"
)

// MemoryLog is an append-only in-memory audit log.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// New creates an empty in-memory audit log.
func New() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(ctx context.Context, entry *audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *MemoryLog) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []audit.Entry
	for i := range l.entries {
		if filter.Matches(&l.entries[i]) {
			results = append(results, l.entries[i])
		}
	}
	return results, nil
}

func (l *MemoryLog) Close() error {
	return nil
}
