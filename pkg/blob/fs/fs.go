// Package fs implements blob storage on the local filesystem under a
// configured root directory.
//
// Writes go to a temporary file in the target directory and are renamed
// into place, so a concurrent reader sees either the previous content or
// the new content in full, never a torn write. There is no cross-operation
// locking: operations on different keys run fully independently, and
// concurrent writes to the same key settle last-write-wins.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atelierhq/wardenfs/pkg/blob"
)

const tempPrefix = ".wardenfs-tmp-"

// FSStore stores blobs as plain files under a root directory.
type FSStore struct {
	root string
}

// New creates the store, creating the root directory if needed.
func New(ctx context.Context, root string) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &FSStore{root: abs}, nil
}

// Root returns the absolute storage root directory.
func (s *FSStore) Root() string {
	return s.root
}

// resolve joins a storage key onto the root and re-checks the boundary.
// Keys come from the path validator, but the check is repeated here so the
// store is safe even when driven directly.
func (s *FSStore) resolve(key string) (string, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(key))
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q resolves outside the storage root", key)
	}
	return abs, nil
}

func infoFromFileInfo(fi os.FileInfo) blob.Info {
	return blob.Info{
		Name:      fi.Name(),
		SizeBytes: uint64(fi.Size()),
		ModTime:   fi.ModTime(),
		CreatedAt: fi.ModTime(),
	}
}

// Read returns the full content and info of the blob at key.
func (s *FSStore) Read(ctx context.Context, key string) ([]byte, blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, blob.Info{}, err
	}

	path, err := s.resolve(key)
	if err != nil {
		return nil, blob.Info{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
		}
		return nil, blob.Info{}, fmt.Errorf("failed to stat blob: %w", err)
	}
	if fi.IsDir() {
		return nil, blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
		}
		return nil, blob.Info{}, fmt.Errorf("failed to read blob: %w", err)
	}

	return data, infoFromFileInfo(fi), nil
}

// WriteAtomic writes data to a temporary file in the target directory,
// syncs it, and renames it over the final path. Rename within a directory
// is atomic on POSIX filesystems, which is what gives readers the
// old-or-new-never-partial guarantee.
func (s *FSStore) WriteAtomic(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temporary blob file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync blob: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to set blob permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close blob: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish blob: %w", err)
	}

	return nil
}

// Delete removes the blob at key. Deleting an absent blob succeeds.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// List returns info for the regular files directly under dirKey, sorted by
// name. Temporary files from in-flight writes are skipped. A directory
// that does not exist yet lists as empty.
func (s *FSStore) List(ctx context.Context, dirKey string) ([]blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolve(dirKey)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	infos := make([]blob.Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				// Deleted between ReadDir and Info; a lister simply does
				// not see it.
				continue
			}
			return nil, fmt.Errorf("failed to stat blob %q: %w", entry.Name(), err)
		}
		infos = append(infos, infoFromFileInfo(fi))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Stat returns info for the blob at key without reading its content.
func (s *FSStore) Stat(ctx context.Context, key string) (blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return blob.Info{}, err
	}

	path, err := s.resolve(key)
	if err != nil {
		return blob.Info{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
		}
		return blob.Info{}, fmt.Errorf("failed to stat blob: %w", err)
	}
	if fi.IsDir() {
		return blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}

	return infoFromFileInfo(fi), nil
}

// Close is a no-op for the filesystem store.
func (s *FSStore) Close() error {
	return nil
}
