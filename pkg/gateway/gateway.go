// Package gateway implements the tool gateway: the single entry point
// through which agent tool invocations reach the workspace services.
//
// Every invocation runs a fixed guard sequence. The identity gate runs
// first, before the operation name is even looked up, so a spoofed request
// cannot probe which operations exist. Then the operation is resolved,
// folder handles are exchanged for concrete paths, the permission matrix
// is consulted, and only then does the handler touch storage. Requests
// stopped by a guard before reaching the filesystem service are audited by
// the gateway itself; everything that gets through is audited downstream.
package gateway

import (
	"context"
	"time"

	"github.com/atelierhq/wardenfs/pkg/audit"
	"github.com/atelierhq/wardenfs/pkg/directory"
	"github.com/atelierhq/wardenfs/pkg/discovery"
	"github.com/atelierhq/wardenfs/pkg/filesystem"
	"github.com/atelierhq/wardenfs/pkg/identity"
	"github.com/atelierhq/wardenfs/pkg/permission"
	"github.com/atelierhq/wardenfs/pkg/workspace"
)

// Args is the closed argument set a tool invocation may carry. Fields
// outside the ones an operation consumes are ignored; there is no
// free-form argument map anywhere on this surface.
type Args struct {
	// RequesterID is the identity the caller claims. It must match the
	// authenticated execution context byte for byte.
	RequesterID string `json:"requesterId"`

	// Path addresses a file or folder for the direct operations
	Path string `json:"path,omitempty"`

	// Handle plus Filename address a file for the by-handle operations
	Handle   string `json:"handle,omitempty"`
	Filename string `json:"filename,omitempty"`

	// Content is the payload for write operations
	Content []byte `json:"content,omitempty"`

	// Scope and TeamID drive folder discovery
	Scope  workspace.FolderScope `json:"scope,omitempty"`
	TeamID string                `json:"teamId,omitempty"`

	// Audit query filter
	FilterRequesterID string    `json:"filterRequesterId,omitempty"`
	FilterOperation   string    `json:"filterOperation,omitempty"`
	FilterPath        string    `json:"filterPath,omitempty"`
	FilterStart       time.Time `json:"filterStart,omitempty"`
	FilterEnd         time.Time `json:"filterEnd,omitempty"`
}

// Handler executes one operation after the guards have passed.
type Handler func(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error)

// Gateway routes tool invocations through the guard sequence to the
// workspace services.
type Gateway struct {
	gate  *identity.Gate
	perms *permission.Service
	fs    *filesystem.Service
	disc  *discovery.Service
	log   audit.Log
	dir   directory.Directory
	clock workspace.Clock

	ops map[string]Handler
}

// New builds the gateway and registers the operation table. The table is
// fixed at construction; nothing can add operations afterwards.
func New(
	gate *identity.Gate,
	perms *permission.Service,
	fs *filesystem.Service,
	disc *discovery.Service,
	log audit.Log,
	dir directory.Directory,
	clock workspace.Clock,
) *Gateway {
	g := &Gateway{
		gate:  gate,
		perms: perms,
		fs:    fs,
		disc:  disc,
		log:   log,
		dir:   dir,
		clock: clock,
	}

	g.ops = map[string]Handler{
		"read":   g.opRead,
		"write":  g.opWrite,
		"delete": g.opDelete,
		"list":   g.opList,
		"stat":   g.opStat,

		"read_by_handle":   g.byHandleFile(audit.OpRead, g.opRead),
		"write_by_handle":  g.byHandleFile(audit.OpCreate, g.opWrite),
		"delete_by_handle": g.byHandleFile(audit.OpDelete, g.opDelete),
		"stat_by_handle":   g.byHandleFile(audit.OpRead, g.opStat),
		"list_by_handle":   g.byHandleFolder(g.opList),

		"discover":      g.opDiscover,
		"sweep_handles": g.opSweepHandles,
		"query_audit":   g.opQueryAudit,
	}
	return g
}

// Operations returns the registered operation names, for diagnostics.
func (g *Gateway) Operations() []string {
	names := make([]string, 0, len(g.ops))
	for name := range g.ops {
		names = append(names, name)
	}
	return names
}

// Execute runs one tool invocation through the full guard sequence.
func (g *Gateway) Execute(ctx context.Context, ectx *workspace.ExecutionContext, operation string, args Args) (any, error) {
	// Identity first. An impostor learns nothing beyond the rejection,
	// not even whether the operation exists.
	if err := g.gate.Verify(args.RequesterID, ectx, operation); err != nil {
		return nil, err
	}

	handler, ok := g.ops[operation]
	if !ok {
		return nil, workspace.NewValidationError("unknown operation", operation)
	}

	return handler(ctx, ectx, args)
}

// auditBlocked records a request that a guard stopped before it could reach
// the filesystem service. Such requests would otherwise leave no trail.
func (g *Gateway) auditBlocked(ctx context.Context, ectx *workspace.ExecutionContext, op audit.Operation, path string, cause error) {
	entry := &audit.Entry{
		Timestamp:     g.clock.Now(),
		RequesterID:   ectx.RequesterID,
		Operation:     op,
		Path:          path,
		Error:         cause.Error(),
		CorrelationID: ectx.CorrelationID,
	}
	_ = g.log.Append(context.WithoutCancel(ctx), entry)
}

// authorize runs the permission check for a raw path. A path that does not
// parse is passed through untouched: the filesystem service repeats the
// validation and audits the rejection, keeping the trail at exactly one
// entry per attempt. A parsed path that the matrix denies is audited here
// and never reaches storage.
func (g *Gateway) authorize(ctx context.Context, ectx *workspace.ExecutionContext, rawPath string, op permission.Operation, auditOp audit.Operation) error {
	p, err := workspace.ParsePath(rawPath)
	if err != nil {
		return nil
	}
	if !g.perms.CheckAccess(ectx.RequesterID, p, op) {
		denied := workspace.NewPermissionDenied(p.String())
		g.auditBlocked(ctx, ectx, auditOp, p.String(), denied)
		return denied
	}
	return nil
}

func (g *Gateway) opRead(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
	if err := g.authorize(ctx, ectx, args.Path, permission.OpRead, audit.OpRead); err != nil {
		return nil, err
	}
	return g.fs.Read(ctx, ectx, args.Path)
}

func (g *Gateway) opWrite(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
	if err := g.authorize(ctx, ectx, args.Path, permission.OpWrite, audit.OpCreate); err != nil {
		return nil, err
	}
	return nil, g.fs.Write(ctx, ectx, args.Path, args.Content)
}

func (g *Gateway) opDelete(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
	if err := g.authorize(ctx, ectx, args.Path, permission.OpDelete, audit.OpDelete); err != nil {
		return nil, err
	}
	return nil, g.fs.Delete(ctx, ectx, args.Path)
}

func (g *Gateway) opList(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
	if err := g.authorize(ctx, ectx, args.Path, permission.OpRead, audit.OpRead); err != nil {
		return nil, err
	}
	return g.fs.List(ctx, ectx, args.Path)
}

func (g *Gateway) opStat(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
	if err := g.authorize(ctx, ectx, args.Path, permission.OpRead, audit.OpRead); err != nil {
		return nil, err
	}
	return g.fs.Stat(ctx, ectx, args.Path)
}

// byHandleFile wraps a file operation so that it addresses its file by
// folder handle plus filename. Resolution failures are audited here: they
// never reach the filesystem service, and the trail must still show the
// attempt.
func (g *Gateway) byHandleFile(op audit.Operation, inner Handler) Handler {
	return func(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
		folder, err := g.disc.Handles().Resolve(args.Handle)
		if err != nil {
			g.auditBlocked(ctx, ectx, op, args.Filename, err)
			return nil, err
		}
		file, err := workspace.JoinFolder(folder, args.Filename)
		if err != nil {
			g.auditBlocked(ctx, ectx, op, folder.String(), err)
			return nil, err
		}
		args.Path = file.String()
		return inner(ctx, ectx, args)
	}
}

// byHandleFolder is byHandleFile for operations that act on the folder
// itself and carry no filename.
func (g *Gateway) byHandleFolder(inner Handler) Handler {
	return func(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
		folder, err := g.disc.Handles().Resolve(args.Handle)
		if err != nil {
			g.auditBlocked(ctx, ectx, audit.OpRead, "", err)
			return nil, err
		}
		args.Path = folder.String()
		return inner(ctx, ectx, args)
	}
}

func (g *Gateway) opDiscover(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
	return g.disc.Discover(ctx, ectx, args.Scope, args.TeamID)
}

// SweepResult reports a handle sweep.
type SweepResult struct {
	Removed int `json:"removed"`
}

func (g *Gateway) opSweepHandles(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
	return &SweepResult{Removed: g.disc.Handles().Sweep()}, nil
}

// opQueryAudit returns audit entries. Ordinary agents see only their own
// trail regardless of the filter they send; members of the library team
// may query across requesters.
func (g *Gateway) opQueryAudit(ctx context.Context, ectx *workspace.ExecutionContext, args Args) (any, error) {
	filter := audit.Filter{
		RequesterID: args.FilterRequesterID,
		Operation:   audit.Operation(args.FilterOperation),
		Path:        args.FilterPath,
		Start:       args.FilterStart,
		End:         args.FilterEnd,
	}

	library := g.dir.LibraryTeam()
	auditor := library != "" && g.dir.IsMember(ectx.RequesterID, library)
	if !auditor {
		filter.RequesterID = ectx.RequesterID
	}

	return g.log.Query(ctx, filter)
}
