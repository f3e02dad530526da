// Package audit defines the append-only audit log: the permanent ground
// truth of every attempted filesystem effect, successful or not.
//
// Entries are immutable once appended. No implementation exposes update or
// delete operations; immutability is structural, not conventional. Ordering
// is append order and is preserved by queries.
package audit

import (
	"context"
	"time"
)

// Operation is the audit classification of an attempted effect.
//
// Writes are always recorded as OpCreate, even when they overwrite an
// existing file. The source system never distinguished create from update
// in its trail and downstream consumers depend on that shape.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpDelete Operation = "delete"
)

// Entry is one self-contained audit record.
type Entry struct {
	// Timestamp is when the attempt was recorded
	Timestamp time.Time `json:"timestamp"`

	// RequesterID is the trusted identity that made the attempt
	RequesterID string `json:"requesterId"`

	// Operation is the attempted effect class
	Operation Operation `json:"operation"`

	// Path is the workspace path the attempt targeted
	Path string `json:"path"`

	// SizeBytes is the content size involved, when applicable
	SizeBytes *uint64 `json:"sizeBytes,omitempty"`

	// Error is the failure message for rejected or failed attempts.
	// Empty for successful attempts.
	Error string `json:"error,omitempty"`

	// CorrelationID ties the entry to the originating request
	CorrelationID string `json:"correlationId"`
}

// Filter selects entries in Query. Zero-valued fields match everything.
type Filter struct {
	RequesterID string
	Operation   Operation
	Path        string
	Start       time.Time
	End         time.Time
}

// Matches reports whether the entry passes the filter.
func (f Filter) Matches(e *Entry) bool {
	if f.RequesterID != "" && e.RequesterID != f.RequesterID {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.Path != "" && e.Path != f.Path {
		return false
	}
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Timestamp.After(f.End) {
		return false
	}
	return true
}

// Log is the append-only audit store.
//
// Append must durably record the entry before returning: the call that
// produced the entry does not complete until its record is on stable
// storage. Query returns matching entries in original append order.
type Log interface {
	Append(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter) ([]Entry, error)
	Close() error
}

// Size wraps a byte count for Entry.SizeBytes.
func Size(n uint64) *uint64 {
	return &n
}
