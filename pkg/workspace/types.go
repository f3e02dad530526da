// Package workspace defines the core domain model for the wardenfs access
// control layer: workspace paths, folder scopes, file entries, execution
// contexts and the shared error taxonomy.
//
// A workspace is the storage segment belonging to one owner (an agent or a
// team), split into a private and a shared visibility segment. Every piece
// of state an agent can touch lives under exactly one workspace segment.
package workspace

import "time"

// Visibility identifies the access segment of a workspace.
type Visibility string

const (
	// VisibilityPrivate is readable and writable only by the owner
	// (or, for team workspaces, by team members).
	VisibilityPrivate Visibility = "private"

	// VisibilityShared is readable by every agent in the organization.
	// Writes and deletes remain restricted to the owner.
	VisibilityShared Visibility = "shared"
)

// OwnerKind distinguishes the two kinds of workspace owners.
type OwnerKind string

const (
	// OwnerAgent marks a workspace owned by an individual agent.
	OwnerAgent OwnerKind = "agent"

	// OwnerTeam marks a workspace owned by a team. One reserved team (the
	// library team) owns the organization-wide library: its shared segment
	// is readable by everyone regardless of team membership.
	OwnerTeam OwnerKind = "team"
)

// FolderScope names one of the five folder discovery scopes.
//
// The same values double as the folder kind in FolderDescriptor: a folder
// discovered under a scope is of that kind.
type FolderScope string

const (
	ScopeMyPrivate   FolderScope = "my_private"
	ScopeMyShared    FolderScope = "my_shared"
	ScopeTeamPrivate FolderScope = "team_private"
	ScopeTeamShared  FolderScope = "team_shared"
	ScopeOrgShared   FolderScope = "org_shared"
)

// Valid reports whether the scope is one of the five known scopes.
func (s FolderScope) Valid() bool {
	switch s {
	case ScopeMyPrivate, ScopeMyShared, ScopeTeamPrivate, ScopeTeamShared, ScopeOrgShared:
		return true
	}
	return false
}

// FileEntry describes one file inside a workspace folder.
//
// Entries are returned by listing and stat operations. Holding an entry
// never grants access by itself: every subsequent operation on the file is
// checked again.
type FileEntry struct {
	// Filename is the base name of the file within its folder
	Filename string `json:"filename"`

	// SizeBytes is the file size in bytes
	SizeBytes uint64 `json:"sizeBytes"`

	// ModifiedAt is the last modification time
	ModifiedAt time.Time `json:"modifiedAt"`

	// MIMEType is the media type derived from the file extension.
	// Empty when the extension has no registered type.
	MIMEType string `json:"mimeType,omitempty"`
}

// FolderDescriptor describes one workspace folder resolved by discovery.
//
// Descriptors are produced only by the discovery service; callers never
// construct them. The Handle field is the opaque, time-limited token that
// stands in for the concrete path in the *ByHandle operations.
type FolderDescriptor struct {
	// Handle is the opaque token standing in for Path
	Handle string `json:"handle"`

	// DisplayName is a human-readable folder name ("research (shared)")
	DisplayName string `json:"displayName"`

	// FolderKind is the scope the folder was discovered under
	FolderKind FolderScope `json:"folderKind"`

	// Path is the concrete workspace path of the folder
	Path string `json:"path"`

	// FileCount is the number of files in the folder at discovery time
	FileCount int `json:"fileCount"`
}
