// Package blob defines the byte storage abstraction the filesystem service
// writes through.
//
// A blob store addresses content by storage-relative keys
// ("agent-scout/private/notes.md"). Stores never enforce workspace policy:
// they trust that keys were produced by the path validator, and the
// filesystem service re-checks the storage-root boundary before handing a
// key down. Three implementations exist: local filesystem, in-memory, and
// S3-compatible object storage.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Info describes one stored blob.
type Info struct {
	// Name is the base filename of the blob
	Name string

	// SizeBytes is the blob size in bytes
	SizeBytes uint64

	// ModTime is the last modification time
	ModTime time.Time

	// CreatedAt is the creation time. Backends that cannot track creation
	// separately report the modification time.
	CreatedAt time.Time
}

// Store is the byte storage interface.
//
// All implementations must be safe for concurrent use. Writes to the same
// key race with last-write-wins semantics, but WriteAtomic guarantees a
// concurrent reader observes either the old or the new complete content,
// never a partial write.
type Store interface {
	// Read returns the full content and info of the blob at key
	Read(ctx context.Context, key string) ([]byte, Info, error)

	// WriteAtomic replaces the blob at key with data in one step that is
	// atomic from any concurrent reader's perspective
	WriteAtomic(ctx context.Context, key string, data []byte) error

	// Delete removes the blob at key. Deleting an absent blob succeeds.
	Delete(ctx context.Context, key string) error

	// List returns info for every blob directly under the directory key,
	// sorted by name. A missing directory lists as empty.
	List(ctx context.Context, dirKey string) ([]Info, error)

	// Stat returns info for the blob at key without reading content
	Stat(ctx context.Context, key string) (Info, error)

	// Close releases backend resources
	Close() error
}
