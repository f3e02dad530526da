package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/wardenfs/pkg/audit"
)

func newTestLog(t *testing.T) (*FileLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, path
}

func entryAt(requester string, op audit.Operation, path string, ts time.Time) *audit.Entry {
	return &audit.Entry{
		Timestamp:     ts,
		RequesterID:   requester,
		Operation:     op,
		Path:          path,
		CorrelationID: "corr-" + requester,
	}
}

// TestAppendPreservesOrder verifies that queries return entries in the
// exact order they were appended.
func TestAppendPreservesOrder(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		e := entryAt("scout", audit.OpCreate, fmt.Sprintf("/agent-scout/private/f%d.md", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, l.Append(ctx, e))
	}

	got, err := l.Query(ctx, audit.Filter{RequesterID: "scout"})
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i, e := range got {
		assert.Equal(t, fmt.Sprintf("/agent-scout/private/f%d.md", i), e.Path)
	}
}

// TestQueryFilters verifies each filter dimension independently.
func TestQueryFilters(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Append(ctx, entryAt("scout", audit.OpCreate, "/agent-scout/private/a.md", base)))
	require.NoError(t, l.Append(ctx, entryAt("scout", audit.OpRead, "/agent-scout/private/a.md", base.Add(time.Minute))))
	require.NoError(t, l.Append(ctx, entryAt("analyst", audit.OpDelete, "/team-research/shared/b.md", base.Add(2*time.Minute))))

	byRequester, err := l.Query(ctx, audit.Filter{RequesterID: "analyst"})
	require.NoError(t, err)
	require.Len(t, byRequester, 1)
	assert.Equal(t, audit.OpDelete, byRequester[0].Operation)

	byOp, err := l.Query(ctx, audit.Filter{Operation: audit.OpRead})
	require.NoError(t, err)
	require.Len(t, byOp, 1)

	byPath, err := l.Query(ctx, audit.Filter{Path: "/agent-scout/private/a.md"})
	require.NoError(t, err)
	assert.Len(t, byPath, 2)

	byWindow, err := l.Query(ctx, audit.Filter{
		Start: base.Add(30 * time.Second),
		End:   base.Add(90 * time.Second),
	})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	assert.Equal(t, audit.OpRead, byWindow[0].Operation)

	all, err := l.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// TestOneParseableLinePerEntry verifies the persisted form: one
// self-contained JSON object per line, fields intact.
func TestOneParseableLinePerEntry(t *testing.T) {
	l, path := newTestLog(t)
	ctx := context.Background()

	e := entryAt("scout", audit.OpCreate, "/agent-scout/private/a.md", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	e.SizeBytes = audit.Size(42)
	e.Error = "file size exceeds maximum allowed size"
	require.NoError(t, l.Append(ctx, e))
	require.NoError(t, l.Append(ctx, entryAt("scout", audit.OpRead, "/agent-scout/private/a.md", time.Now())))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var decoded audit.Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded), "line %d must parse standalone", lines)
		lines++
		if lines == 1 {
			assert.Equal(t, "scout", decoded.RequesterID)
			require.NotNil(t, decoded.SizeBytes)
			assert.Equal(t, uint64(42), *decoded.SizeBytes)
			assert.Equal(t, "file size exceeds maximum allowed size", decoded.Error)
			assert.Equal(t, "corr-scout", decoded.CorrelationID)
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 2, lines)
}

// TestQueryOnMissingFile verifies an unwritten log queries as empty.
func TestQueryOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := New(path)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, os.Remove(path))
	got, err := l.Query(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
