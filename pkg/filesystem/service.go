// Package filesystem implements the filesystem service: the component that
// turns a validated operation request into an actual storage effect.
//
// Every call runs the same pipeline in mandatory order: normalize and
// classify the raw path, apply the file-type and size policy, perform the
// blob I/O, and append exactly one audit entry - success or failure - via a
// deferred recorder, so a failing step can never skip the trail. Permission
// checks happen upstream in the gateway; by the time a request reaches this
// service its requester is authenticated and authorized.
package filesystem

import (
	"context"
	"errors"
	"time"

	"github.com/atelierhq/wardenfs/pkg/audit"
	"github.com/atelierhq/wardenfs/pkg/blob"
	"github.com/atelierhq/wardenfs/pkg/workspace"
)

// Service orchestrates path validation, policy and blob I/O.
type Service struct {
	store blob.Store
	log   audit.Log
	clock workspace.Clock
}

// NewService builds the filesystem service over a blob store and an audit
// log. All dependencies are injected; the service keeps no global state.
func NewService(store blob.Store, log audit.Log, clock workspace.Clock) *Service {
	return &Service{store: store, log: log, clock: clock}
}

// ReadResult is the outcome of a successful read.
type ReadResult struct {
	Content    []byte    `json:"content"`
	SizeBytes  uint64    `json:"sizeBytes"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// StatResult is the outcome of a successful stat.
type StatResult struct {
	SizeBytes  uint64    `json:"sizeBytes"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// newEntry starts an audit entry for one attempted operation. The path is
// the raw caller-supplied string until validation normalizes it.
func (s *Service) newEntry(ectx *workspace.ExecutionContext, op audit.Operation, rawPath string) *audit.Entry {
	return &audit.Entry{
		Timestamp:     s.clock.Now(),
		RequesterID:   ectx.RequesterID,
		Operation:     op,
		Path:          rawPath,
		CorrelationID: ectx.CorrelationID,
	}
}

// record appends the audit entry exactly once, carrying the call's error
// message if any. It runs deferred so the append happens on every exit
// path, and it uses a detached context so a cancelled request still gets
// its record. A failed append turns an otherwise successful call into an
// IOError: an unaudited effect must not report success.
func (s *Service) record(ctx context.Context, entry *audit.Entry, callErr *error) {
	if *callErr != nil {
		entry.Error = (*callErr).Error()
	}
	if err := s.log.Append(context.WithoutCancel(ctx), entry); err != nil && *callErr == nil {
		*callErr = workspace.NewIOError("failed to record audit entry", entry.Path)
	}
}

// parseFile validates a raw path that must address a file (not a folder)
// and applies the extension policy.
func parseFile(rawPath string) (*workspace.Path, error) {
	p, err := workspace.ParsePath(rawPath)
	if err != nil {
		return nil, err
	}
	if p.IsFolder() {
		return nil, workspace.NewValidationError("path must name a file", p.String())
	}
	if err := checkExtension(p.Base()); err != nil {
		return nil, err
	}
	return p, nil
}

// Read returns the full content of the file at path.
func (s *Service) Read(ctx context.Context, ectx *workspace.ExecutionContext, rawPath string) (result *ReadResult, err error) {
	entry := s.newEntry(ectx, audit.OpRead, rawPath)
	defer s.record(ctx, entry, &err)

	p, err := parseFile(rawPath)
	if err != nil {
		return nil, err
	}
	entry.Path = p.String()

	data, info, err := s.store.Read(ctx, p.StorageKey())
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, workspace.NewNotFound(p.String())
		}
		return nil, workspace.NewIOError("failed to read file", p.String())
	}

	entry.SizeBytes = audit.Size(info.SizeBytes)
	return &ReadResult{
		Content:    data,
		SizeBytes:  info.SizeBytes,
		ModifiedAt: info.ModTime,
	}, nil
}

// Write stores content at path, replacing any existing file atomically.
//
// The audit trail records every write as a create, including overwrites;
// the trail has never distinguished the two and downstream consumers
// depend on that shape.
func (s *Service) Write(ctx context.Context, ectx *workspace.ExecutionContext, rawPath string, content []byte) (err error) {
	entry := s.newEntry(ectx, audit.OpCreate, rawPath)
	entry.SizeBytes = audit.Size(uint64(len(content)))
	defer s.record(ctx, entry, &err)

	p, err := parseFile(rawPath)
	if err != nil {
		return err
	}
	entry.Path = p.String()

	if err := checkSize(len(content), p.String()); err != nil {
		return err
	}

	if err := s.store.WriteAtomic(ctx, p.StorageKey(), content); err != nil {
		return workspace.NewIOError("failed to write file", p.String())
	}
	return nil
}

// Delete removes the file at path. Deleting an already-absent file
// succeeds: the requested effect, absence, is already achieved. The
// attempt is audited either way.
func (s *Service) Delete(ctx context.Context, ectx *workspace.ExecutionContext, rawPath string) (err error) {
	entry := s.newEntry(ectx, audit.OpDelete, rawPath)
	defer s.record(ctx, entry, &err)

	p, err := parseFile(rawPath)
	if err != nil {
		return err
	}
	entry.Path = p.String()

	if err := s.store.Delete(ctx, p.StorageKey()); err != nil {
		return workspace.NewIOError("failed to delete file", p.String())
	}
	return nil
}

// List returns the entries of the folder at path, sorted by filename.
// A folder that holds no files yet lists as empty.
func (s *Service) List(ctx context.Context, ectx *workspace.ExecutionContext, rawPath string) (entries []workspace.FileEntry, err error) {
	auditEntry := s.newEntry(ectx, audit.OpRead, rawPath)
	defer s.record(ctx, auditEntry, &err)

	p, err := workspace.ParsePath(rawPath)
	if err != nil {
		return nil, err
	}
	auditEntry.Path = p.String()

	infos, err := s.store.List(ctx, p.StorageKey())
	if err != nil {
		return nil, workspace.NewIOError("failed to list folder", p.String())
	}

	entries = make([]workspace.FileEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, workspace.FileEntry{
			Filename:   info.Name,
			SizeBytes:  info.SizeBytes,
			ModifiedAt: info.ModTime,
			MIMEType:   mimeTypeFor(info.Name),
		})
	}
	return entries, nil
}

// Stat returns size and timestamps for the file at path without reading
// its content.
func (s *Service) Stat(ctx context.Context, ectx *workspace.ExecutionContext, rawPath string) (result *StatResult, err error) {
	entry := s.newEntry(ectx, audit.OpRead, rawPath)
	defer s.record(ctx, entry, &err)

	p, err := parseFile(rawPath)
	if err != nil {
		return nil, err
	}
	entry.Path = p.String()

	info, err := s.store.Stat(ctx, p.StorageKey())
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, workspace.NewNotFound(p.String())
		}
		return nil, workspace.NewIOError("failed to stat file", p.String())
	}

	entry.SizeBytes = audit.Size(info.SizeBytes)
	return &StatResult{
		SizeBytes:  info.SizeBytes,
		CreatedAt:  info.CreatedAt,
		ModifiedAt: info.ModTime,
	}, nil
}
