// Package memory implements an in-memory blob store for tests and
// ephemeral deployments.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atelierhq/wardenfs/pkg/blob"
)

type record struct {
	data      []byte
	modTime   time.Time
	createdAt time.Time
}

// MemoryStore holds blobs in a map guarded by a read-write mutex. The
// mutex makes every write a single atomic swap, which trivially satisfies
// the old-or-new read guarantee.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]record
}

// New creates an empty in-memory blob store.
func New() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]record)}
}

func (s *MemoryStore) Read(ctx context.Context, key string) ([]byte, blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, blob.Info{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.blobs[key]
	if !ok {
		return nil, blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}
	data := append([]byte(nil), rec.data...)
	return data, s.infoLocked(key, rec), nil
}

func (s *MemoryStore) WriteAtomic(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec := record{data: append([]byte(nil), data...), modTime: now, createdAt: now}
	if prev, ok := s.blobs[key]; ok {
		rec.createdAt = prev.createdAt
	}
	s.blobs[key] = rec
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, dirKey string) ([]blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := strings.TrimSuffix(dirKey, "/") + "/"

	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []blob.Info
	for key, rec := range s.blobs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		// Only direct children: nested keys belong to sub-listings.
		if strings.ContainsRune(key[len(prefix):], '/') {
			continue
		}
		infos = append(infos, s.infoLocked(key, rec))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *MemoryStore) Stat(ctx context.Context, key string) (blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return blob.Info{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.blobs[key]
	if !ok {
		return blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}
	return s.infoLocked(key, rec), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) infoLocked(key string, rec record) blob.Info {
	return blob.Info{
		Name:      path.Base(key),
		SizeBytes: uint64(len(rec.data)),
		ModTime:   rec.modTime,
		CreatedAt: rec.createdAt,
	}
}
