package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/wardenfs/pkg/audit"
	auditmem "github.com/atelierhq/wardenfs/pkg/audit/memory"
	blobmem "github.com/atelierhq/wardenfs/pkg/blob/memory"
	"github.com/atelierhq/wardenfs/pkg/directory"
	"github.com/atelierhq/wardenfs/pkg/discovery"
	"github.com/atelierhq/wardenfs/pkg/filesystem"
	"github.com/atelierhq/wardenfs/pkg/identity"
	"github.com/atelierhq/wardenfs/pkg/permission"
	"github.com/atelierhq/wardenfs/pkg/workspace"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	gw    *Gateway
	log   *auditmem.MemoryLog
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir, err := directory.NewMemoryDirectory(
		[]string{"scout", "analyst", "archivist", "loner"},
		[]directory.Team{
			{ID: "research", Members: []string{"scout", "analyst"}},
			{ID: "library", Members: []string{"archivist"}},
		},
		"library",
	)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	store := blobmem.New()
	log := auditmem.New()

	gate := identity.NewGate(func(string, ...any) {})
	fs := filesystem.NewService(store, log, clock)
	disc := discovery.NewService(dir, store, discovery.NewHandleCache(clock))

	return &fixture{
		gw:    New(gate, permission.NewService(dir), fs, disc, log, dir, clock),
		log:   log,
		clock: clock,
	}
}

func ectxFor(requester string) *workspace.ExecutionContext {
	return workspace.NewExecutionContext(requester, "org-1")
}

func (f *fixture) entries(t *testing.T) []audit.Entry {
	t.Helper()
	entries, err := f.log.Query(context.Background(), audit.Filter{})
	require.NoError(t, err)
	return entries
}

func TestIdentityCheckedBeforeOperationLookup(t *testing.T) {
	f := newFixture(t)

	// both the identity and the operation are wrong; the rejection must
	// be the identity one
	_, err := f.gw.Execute(context.Background(), ectxFor("scout"), "no_such_operation", Args{
		RequesterID: "analyst",
	})
	require.Error(t, err)

	var mismatch *workspace.IdentityMismatchError
	assert.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "identity mismatch: request rejected", err.Error())
}

func TestUnknownOperationAfterIdentity(t *testing.T) {
	f := newFixture(t)

	_, err := f.gw.Execute(context.Background(), ectxFor("scout"), "no_such_operation", Args{
		RequesterID: "scout",
	})
	require.Error(t, err)
	assert.True(t, workspace.IsCode(err, workspace.ErrValidation))
}

func TestWriteThenReadOwnPrivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Execute(ctx, ectxFor("scout"), "write", Args{
		RequesterID: "scout",
		Path:        "/agent-scout/private/notes.md",
		Content:     []byte("# notes"),
	})
	require.NoError(t, err)

	result, err := f.gw.Execute(ctx, ectxFor("scout"), "read", Args{
		RequesterID: "scout",
		Path:        "/agent-scout/private/notes.md",
	})
	require.NoError(t, err)
	read := result.(*filesystem.ReadResult)
	assert.Equal(t, "# notes", string(read.Content))
}

func TestCrossAgentPrivateDeniedAndAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Execute(ctx, ectxFor("analyst"), "read", Args{
		RequesterID: "analyst",
		Path:        "/agent-scout/private/notes.md",
	})
	require.Error(t, err)
	assert.True(t, workspace.IsCode(err, workspace.ErrPermissionDenied))
	assert.Contains(t, err.Error(), workspace.PermissionDeniedMessage)

	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "analyst", entries[0].RequesterID)
	assert.Equal(t, audit.OpRead, entries[0].Operation)
	assert.Equal(t, "/agent-scout/private/notes.md", entries[0].Path)
	assert.Contains(t, entries[0].Error, "access denied")
}

func TestCrossAgentSharedReadAllowedWriteDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Execute(ctx, ectxFor("scout"), "write", Args{
		RequesterID: "scout",
		Path:        "/agent-scout/shared/findings.md",
		Content:     []byte("results"),
	})
	require.NoError(t, err)

	result, err := f.gw.Execute(ctx, ectxFor("analyst"), "read", Args{
		RequesterID: "analyst",
		Path:        "/agent-scout/shared/findings.md",
	})
	require.NoError(t, err)
	assert.Equal(t, "results", string(result.(*filesystem.ReadResult).Content))

	_, err = f.gw.Execute(ctx, ectxFor("analyst"), "write", Args{
		RequesterID: "analyst",
		Path:        "/agent-scout/shared/findings.md",
		Content:     []byte("tampered"),
	})
	require.Error(t, err)
	assert.True(t, workspace.IsCode(err, workspace.ErrPermissionDenied))
}

func TestTeamFolderAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Execute(ctx, ectxFor("scout"), "write", Args{
		RequesterID: "scout",
		Path:        "/team-research/private/plan.md",
		Content:     []byte("q2 plan"),
	})
	require.NoError(t, err)

	// fellow member reads
	_, err = f.gw.Execute(ctx, ectxFor("analyst"), "read", Args{
		RequesterID: "analyst",
		Path:        "/team-research/private/plan.md",
	})
	require.NoError(t, err)

	// non-member cannot
	_, err = f.gw.Execute(ctx, ectxFor("loner"), "read", Args{
		RequesterID: "loner",
		Path:        "/team-research/private/plan.md",
	})
	require.Error(t, err)
	assert.True(t, workspace.IsCode(err, workspace.ErrPermissionDenied))
}

func TestInvalidPathAuditedOnce(t *testing.T) {
	f := newFixture(t)

	_, err := f.gw.Execute(context.Background(), ectxFor("scout"), "read", Args{
		RequesterID: "scout",
		Path:        "/agent-scout/private/../../agent-analyst/private/x.txt",
	})
	require.Error(t, err)
	assert.True(t, workspace.IsCode(err, workspace.ErrValidation))

	// validation failures pass through to the filesystem service, which
	// writes the single audit entry for the attempt
	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].Error)
}

func TestByHandleRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.gw.Execute(ctx, ectxFor("scout"), "discover", Args{
		RequesterID: "scout",
		Scope:       workspace.ScopeMyPrivate,
	})
	require.NoError(t, err)
	descs := result.([]workspace.FolderDescriptor)
	require.Len(t, descs, 1)
	handle := descs[0].Handle

	_, err = f.gw.Execute(ctx, ectxFor("scout"), "write_by_handle", Args{
		RequesterID: "scout",
		Handle:      handle,
		Filename:    "journal.md",
		Content:     []byte("day one"),
	})
	require.NoError(t, err)

	result, err = f.gw.Execute(ctx, ectxFor("scout"), "read_by_handle", Args{
		RequesterID: "scout",
		Handle:      handle,
		Filename:    "journal.md",
	})
	require.NoError(t, err)
	assert.Equal(t, "day one", string(result.(*filesystem.ReadResult).Content))

	result, err = f.gw.Execute(ctx, ectxFor("scout"), "list_by_handle", Args{
		RequesterID: "scout",
		Handle:      handle,
	})
	require.NoError(t, err)
	listing := result.([]workspace.FileEntry)
	require.Len(t, listing, 1)
	assert.Equal(t, "journal.md", listing[0].Filename)

	result, err = f.gw.Execute(ctx, ectxFor("scout"), "stat_by_handle", Args{
		RequesterID: "scout",
		Handle:      handle,
		Filename:    "journal.md",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), result.(*filesystem.StatResult).SizeBytes)

	_, err = f.gw.Execute(ctx, ectxFor("scout"), "delete_by_handle", Args{
		RequesterID: "scout",
		Handle:      handle,
		Filename:    "journal.md",
	})
	require.NoError(t, err)
}

func TestByHandleExpiredHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.gw.Execute(ctx, ectxFor("scout"), "discover", Args{
		RequesterID: "scout",
		Scope:       workspace.ScopeMyPrivate,
	})
	require.NoError(t, err)
	handle := result.([]workspace.FolderDescriptor)[0].Handle

	f.clock.Advance(31 * time.Minute)

	_, err = f.gw.Execute(ctx, ectxFor("scout"), "read_by_handle", Args{
		RequesterID: "scout",
		Handle:      handle,
		Filename:    "journal.md",
	})
	require.Error(t, err)
	assert.True(t, workspace.IsCode(err, workspace.ErrHandleExpired))
	assert.Equal(t, workspace.HandleExpiredMessage, err.Error())

	// the blocked attempt still leaves a trail
	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Error, "re-run folder discovery")
}

func TestByHandleFilenameTraversalRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.gw.Execute(ctx, ectxFor("scout"), "discover", Args{
		RequesterID: "scout",
		Scope:       workspace.ScopeMyPrivate,
	})
	require.NoError(t, err)
	handle := result.([]workspace.FolderDescriptor)[0].Handle

	for _, name := range []string{"../escape.txt", "..%2Fescape.txt", "a/b.txt", ""} {
		_, err = f.gw.Execute(ctx, ectxFor("scout"), "read_by_handle", Args{
			RequesterID: "scout",
			Handle:      handle,
			Filename:    name,
		})
		require.Error(t, err, "filename %q", name)
		assert.True(t, workspace.IsCode(err, workspace.ErrValidation), "filename %q", name)
	}
}

func TestByHandlePermissionStillChecked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// analyst discovers research's shared folder via org is not needed;
	// a handle for scout's private folder issued to scout must not grant
	// analyst anything even if leaked
	result, err := f.gw.Execute(ctx, ectxFor("scout"), "discover", Args{
		RequesterID: "scout",
		Scope:       workspace.ScopeMyPrivate,
	})
	require.NoError(t, err)
	handle := result.([]workspace.FolderDescriptor)[0].Handle

	_, err = f.gw.Execute(ctx, ectxFor("analyst"), "read_by_handle", Args{
		RequesterID: "analyst",
		Handle:      handle,
		Filename:    "journal.md",
	})
	require.Error(t, err)
	assert.True(t, workspace.IsCode(err, workspace.ErrPermissionDenied))
}

func TestQueryAuditScopedToOwnEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Execute(ctx, ectxFor("scout"), "write", Args{
		RequesterID: "scout",
		Path:        "/agent-scout/private/a.txt",
		Content:     []byte("x"),
	})
	require.NoError(t, err)
	_, err = f.gw.Execute(ctx, ectxFor("analyst"), "write", Args{
		RequesterID: "analyst",
		Path:        "/agent-analyst/private/b.txt",
		Content:     []byte("y"),
	})
	require.NoError(t, err)

	// analyst asks for scout's entries and gets only their own
	result, err := f.gw.Execute(ctx, ectxFor("analyst"), "query_audit", Args{
		RequesterID:       "analyst",
		FilterRequesterID: "scout",
	})
	require.NoError(t, err)
	entries := result.([]audit.Entry)
	require.Len(t, entries, 1)
	assert.Equal(t, "analyst", entries[0].RequesterID)

	// a library team member may query across requesters
	result, err = f.gw.Execute(ctx, ectxFor("archivist"), "query_audit", Args{
		RequesterID:       "archivist",
		FilterRequesterID: "scout",
	})
	require.NoError(t, err)
	entries = result.([]audit.Entry)
	require.Len(t, entries, 1)
	assert.Equal(t, "scout", entries[0].RequesterID)
}

func TestSweepHandles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.gw.Execute(ctx, ectxFor("scout"), "discover", Args{
			RequesterID: "scout",
			Scope:       workspace.ScopeMyPrivate,
		})
		require.NoError(t, err)
	}

	f.clock.Advance(31 * time.Minute)

	result, err := f.gw.Execute(ctx, ectxFor("scout"), "sweep_handles", Args{
		RequesterID: "scout",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.(*SweepResult).Removed)
}
