// Package permission implements the pure access decision for workspace
// operations.
//
// The decision is a lookup in a literal access matrix keyed by owner kind,
// visibility, requester relationship and operation. Encoding the policy as
// data instead of branching code keeps every cell independently testable
// and makes the default unambiguous: any combination without a matrix entry
// is denied (fail closed).
package permission

import (
	"github.com/atelierhq/wardenfs/pkg/directory"
	"github.com/atelierhq/wardenfs/pkg/workspace"
)

// Operation is the access class of a request. Listing and stat requests
// share the Read class; they disclose the same information a read does.
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
)

// Relationship is the requester's relationship to a workspace owner.
type Relationship string

const (
	// RelationSelf means the requester is the owning agent
	RelationSelf Relationship = "self"

	// RelationMember means the owner is a team and the requester belongs
	// to it
	RelationMember Relationship = "member"

	// RelationOther covers every other requester
	RelationOther Relationship = "other"
)

// Rule is one cell coordinate of the access matrix.
type Rule struct {
	Owner        workspace.OwnerKind
	Visibility   workspace.Visibility
	Relationship Relationship
	Operation    Operation
}

// Matrix is the complete access policy. Only allowed cells are listed;
// lookups of absent cells deny.
//
// The library team's shared segment follows the ordinary team rules here:
// readable by anyone, writable and deletable by members. What makes the
// library special is discovery, not permissions.
var Matrix = map[Rule]bool{
	// An agent's private segment is reachable by that agent alone.
	{workspace.OwnerAgent, workspace.VisibilityPrivate, RelationSelf, OpRead}:   true,
	{workspace.OwnerAgent, workspace.VisibilityPrivate, RelationSelf, OpWrite}:  true,
	{workspace.OwnerAgent, workspace.VisibilityPrivate, RelationSelf, OpDelete}: true,

	// An agent's shared segment is world-readable, owner-writable.
	{workspace.OwnerAgent, workspace.VisibilityShared, RelationSelf, OpRead}:    true,
	{workspace.OwnerAgent, workspace.VisibilityShared, RelationSelf, OpWrite}:   true,
	{workspace.OwnerAgent, workspace.VisibilityShared, RelationSelf, OpDelete}:  true,
	{workspace.OwnerAgent, workspace.VisibilityShared, RelationOther, OpRead}:   true,

	// A team's private segment is reachable by team members alone.
	{workspace.OwnerTeam, workspace.VisibilityPrivate, RelationMember, OpRead}:   true,
	{workspace.OwnerTeam, workspace.VisibilityPrivate, RelationMember, OpWrite}:  true,
	{workspace.OwnerTeam, workspace.VisibilityPrivate, RelationMember, OpDelete}: true,

	// A team's shared segment is world-readable, member-writable.
	{workspace.OwnerTeam, workspace.VisibilityShared, RelationMember, OpRead}:   true,
	{workspace.OwnerTeam, workspace.VisibilityShared, RelationMember, OpWrite}:  true,
	{workspace.OwnerTeam, workspace.VisibilityShared, RelationMember, OpDelete}: true,
	{workspace.OwnerTeam, workspace.VisibilityShared, RelationOther, OpRead}:    true,
}

// Service answers access questions against the organization directory.
//
// CheckAccess is pure and side-effect free, so callers may invoke it
// speculatively without consequences.
type Service struct {
	dir directory.Directory
}

// NewService builds a permission service over the given directory.
func NewService(dir directory.Directory) *Service {
	return &Service{dir: dir}
}

// CheckAccess reports whether the requester may perform the operation on
// the path. A nil path, an empty requester id or any combination not
// present in the matrix denies.
func (s *Service) CheckAccess(requesterID string, p *workspace.Path, op Operation) bool {
	if requesterID == "" || p == nil {
		return false
	}

	return Matrix[Rule{
		Owner:        p.OwnerKind,
		Visibility:   p.Visibility,
		Relationship: s.Relate(requesterID, p),
		Operation:    op,
	}]
}

// Relate determines the requester's relationship to the path's owner.
func (s *Service) Relate(requesterID string, p *workspace.Path) Relationship {
	switch p.OwnerKind {
	case workspace.OwnerAgent:
		if requesterID == p.OwnerID {
			return RelationSelf
		}
	case workspace.OwnerTeam:
		if s.dir.IsMember(requesterID, p.OwnerID) {
			return RelationMember
		}
	}
	return RelationOther
}
