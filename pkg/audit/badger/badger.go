// Package badger implements the audit log on BadgerDB for deployments that
// need the trail to survive process restarts.
//
// Key schema:
//
//	audit:<seq> -> JSON-encoded audit.Entry
//
// where <seq> is an 8-byte big-endian sequence number. Big-endian encoding
// makes lexicographic key order equal append order, so an ordered prefix
// scan reproduces the trail exactly. Keys are only ever written once; there
// is no update or delete path.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/atelierhq/wardenfs/pkg/audit"
)

var keyPrefix = []byte("audit:")

// BadgerLog is a persistent, append-only audit log.
type BadgerLog struct {
	db *badger.DB

	// mu serializes appends so sequence numbers are assigned and committed
	// in the same order
	mu  sync.Mutex
	seq uint64
}

// Config holds BadgerDB-specific settings.
type Config struct {
	// DBPath is the directory holding the Badger value log and LSM tree
	DBPath string `mapstructure:"db_path"`

	// SyncWrites forces an fsync on every commit. Enabled by default:
	// the audit contract requires durability before the producing call
	// returns.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// New opens (or creates) the audit database and recovers the last sequence
// number from the highest existing key.
func New(cfg Config) (*BadgerLog, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("badger audit log: db_path is required")
	}

	opts := badger.DefaultOptions(cfg.DBPath).
		WithSyncWrites(cfg.SyncWrites).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	l := &BadgerLog{db: db}
	if err := l.recoverSequence(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// recoverSequence finds the highest committed sequence number.
func (l *BadgerLog) recoverSequence() error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek to the end of the audit keyspace and step back onto the
		// highest existing key.
		seekKey := append(append([]byte(nil), keyPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(keyPrefix); it.Next() {
			key := it.Item().Key()
			l.seq = binary.BigEndian.Uint64(key[len(keyPrefix):])
			return nil
		}
		return nil
	})
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], seq)
	return key
}

// Append durably records one entry under the next sequence number.
func (l *BadgerLog) Append(ctx context.Context, entry *audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.seq + 1
	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sequenceKey(next), value)
	})
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	l.seq = next
	return nil
}

// Query scans the audit keyspace in sequence order and returns matching
// entries.
func (l *BadgerLog) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []audit.Entry
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(value []byte) error {
				var entry audit.Entry
				if err := json.Unmarshal(value, &entry); err != nil {
					return fmt.Errorf("corrupt audit entry: %w", err)
				}
				if filter.Matches(&entry) {
					results = append(results, entry)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close closes the underlying database.
func (l *BadgerLog) Close() error {
	return l.db.Close()
}
