// Package discovery implements folder discovery: resolving the scopes an
// agent may ask about into concrete workspace folders, and issuing the
// opaque handles that later stand in for those folders.
//
// Discovery is an entry point, not an authority. Every descriptor it hands
// out is advisory; the operations that later act on the folder re-check
// permissions from scratch.
package discovery

import (
	"context"
	"sort"

	"github.com/atelierhq/wardenfs/internal/logger"
	"github.com/atelierhq/wardenfs/pkg/blob"
	"github.com/atelierhq/wardenfs/pkg/directory"
	"github.com/atelierhq/wardenfs/pkg/workspace"
)

// Service resolves discovery scopes into folder descriptors.
type Service struct {
	dir     directory.Directory
	store   blob.Store
	handles *HandleCache
}

// NewService builds the discovery service.
func NewService(dir directory.Directory, store blob.Store, handles *HandleCache) *Service {
	return &Service{dir: dir, store: store, handles: handles}
}

// Handles exposes the handle cache so the gateway can resolve handles and
// the server can run periodic sweeps.
func (s *Service) Handles() *HandleCache {
	return s.handles
}

// Discover resolves a scope into the folders visible to the requester
// under it. The team scopes resolve the named team after a membership
// check, or every team the requester belongs to when teamID is empty;
// org_shared ignores teamID and aggregates every other owner's shared
// folder.
func (s *Service) Discover(ctx context.Context, ectx *workspace.ExecutionContext, scope workspace.FolderScope, teamID string) ([]workspace.FolderDescriptor, error) {
	if !scope.Valid() {
		return nil, workspace.NewValidationError("unknown discovery scope", string(scope))
	}

	switch scope {
	case workspace.ScopeMyPrivate:
		return s.ownFolder(ctx, ectx, workspace.VisibilityPrivate, scope)
	case workspace.ScopeMyShared:
		return s.ownFolder(ctx, ectx, workspace.VisibilityShared, scope)
	case workspace.ScopeTeamPrivate:
		return s.teamFolder(ctx, ectx, teamID, workspace.VisibilityPrivate, scope)
	case workspace.ScopeTeamShared:
		return s.teamFolder(ctx, ectx, teamID, workspace.VisibilityShared, scope)
	default:
		return s.orgShared(ctx, ectx)
	}
}

func (s *Service) ownFolder(ctx context.Context, ectx *workspace.ExecutionContext, vis workspace.Visibility, scope workspace.FolderScope) ([]workspace.FolderDescriptor, error) {
	folder := &workspace.Path{
		OwnerKind:  workspace.OwnerAgent,
		OwnerID:    ectx.RequesterID,
		Visibility: vis,
	}

	desc, err := s.describe(ctx, folder, "my workspace ("+string(vis)+")", scope)
	if err != nil {
		return nil, err
	}
	return []workspace.FolderDescriptor{*desc}, nil
}

func (s *Service) teamFolder(ctx context.Context, ectx *workspace.ExecutionContext, teamID string, vis workspace.Visibility, scope workspace.FolderScope) ([]workspace.FolderDescriptor, error) {
	if teamID == "" {
		return s.ownTeamFolders(ctx, ectx, vis, scope)
	}
	if !s.dir.IsMember(ectx.RequesterID, teamID) {
		return nil, workspace.NewPermissionDenied("/team-" + teamID + "/" + string(vis))
	}

	folder := &workspace.Path{
		OwnerKind:  workspace.OwnerTeam,
		OwnerID:    teamID,
		Visibility: vis,
	}

	desc, err := s.describe(ctx, folder, teamID+" ("+string(vis)+")", scope)
	if err != nil {
		return nil, err
	}
	return []workspace.FolderDescriptor{*desc}, nil
}

// ownTeamFolders resolves a team scope without an explicit team id: one
// descriptor per team the requester belongs to. A requester with no team
// gets a descriptive error rather than an empty list, so a misconfigured
// agent is told what is missing.
func (s *Service) ownTeamFolders(ctx context.Context, ectx *workspace.ExecutionContext, vis workspace.Visibility, scope workspace.FolderScope) ([]workspace.FolderDescriptor, error) {
	teams := s.dir.TeamsOf(ectx.RequesterID)
	if len(teams) == 0 {
		return nil, workspace.NewValidationError("requester belongs to no team", string(scope))
	}

	descriptors := make([]workspace.FolderDescriptor, 0, len(teams))
	for _, teamID := range teams {
		folder := &workspace.Path{
			OwnerKind:  workspace.OwnerTeam,
			OwnerID:    teamID,
			Visibility: vis,
		}
		desc, err := s.describe(ctx, folder, teamID+" ("+string(vis)+")", scope)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, *desc)
	}
	return descriptors, nil
}

// orgShared aggregates the shared folders of every other owner in the
// organization: all agents except the requester, and all teams, the
// library team included. One owner's storage failing does not sink the
// whole listing; the failed folder is skipped and logged, and an
// organization where nothing is shared yet discovers as an empty list.
func (s *Service) orgShared(ctx context.Context, ectx *workspace.ExecutionContext) ([]workspace.FolderDescriptor, error) {
	descriptors := make([]workspace.FolderDescriptor, 0)

	appendOwner := func(kind workspace.OwnerKind, ownerID, displayName string) {
		folder := &workspace.Path{
			OwnerKind:  kind,
			OwnerID:    ownerID,
			Visibility: workspace.VisibilityShared,
		}
		desc, err := s.describe(ctx, folder, displayName, workspace.ScopeOrgShared)
		if err != nil {
			logger.Warn("discovery: skipping %s: %v", folder.String(), err)
			return
		}
		descriptors = append(descriptors, *desc)
	}

	for _, agentID := range s.dir.Agents() {
		if agentID == ectx.RequesterID {
			continue
		}
		appendOwner(workspace.OwnerAgent, agentID, agentID+" (shared)")
	}

	library := s.dir.LibraryTeam()
	for _, teamID := range s.dir.Teams() {
		name := teamID + " (shared)"
		if teamID == library {
			name = "organization library"
		}
		appendOwner(workspace.OwnerTeam, teamID, name)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Path < descriptors[j].Path
	})
	return descriptors, nil
}

// describe counts the folder's files and issues a fresh handle for it.
func (s *Service) describe(ctx context.Context, folder *workspace.Path, displayName string, scope workspace.FolderScope) (*workspace.FolderDescriptor, error) {
	infos, err := s.store.List(ctx, folder.StorageKey())
	if err != nil {
		return nil, workspace.NewIOError("failed to inspect folder", folder.String())
	}

	return &workspace.FolderDescriptor{
		Handle:      s.handles.Issue(folder),
		DisplayName: displayName,
		FolderKind:  scope,
		Path:        folder.String(),
		FileCount:   len(infos),
	}, nil
}
