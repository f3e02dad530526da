package workspace

import (
	"net/url"
	"path"
	"strings"
)

// Path is a validated, normalized workspace path.
//
// A workspace path has the form
//
//	/<ownerKind>-<ownerID>/<visibility>[/<relative file path>]
//
// for example "/agent-scout/private/notes.md" or "/team-research/shared".
// A Path is only ever produced by ParsePath, so holding one means the raw
// string survived normalization, traversal checks and classification. The
// blob stores still re-check the derived storage key against their own root
// before touching disk.
type Path struct {
	// OwnerKind is the kind of the owning principal (agent or team)
	OwnerKind OwnerKind

	// OwnerID is the stable identifier of the owning agent or team
	OwnerID string

	// Visibility is the workspace segment (private or shared)
	Visibility Visibility

	// Rel is the file path relative to the visibility segment.
	// Empty when the path addresses the folder itself (list targets).
	Rel string
}

// decodePasses is how many rounds of percent-decoding are applied when
// scanning for traversal tokens. Two rounds cover single- and
// double-percent-encoded forms ("%2e%2e" and "%252e%252e").
const decodePasses = 2

// ParsePath normalizes and classifies a raw, untrusted path string.
//
// The pipeline order is mandatory: normalize first, then check, because
// traversal sequences may only become apparent after collapsing "./" and
// redundant separators. Any path that matches no known workspace shape is
// rejected (fail closed).
//
// Returns a Validation error naming the violated rule, never a partial Path.
func ParsePath(raw string) (*Path, error) {
	if raw == "" {
		return nil, NewValidationError("empty path", "")
	}
	if strings.ContainsRune(raw, 0) {
		return nil, NewValidationError("path contains null byte", raw)
	}
	if strings.ContainsRune(raw, '\\') {
		return nil, NewValidationError("path contains invalid separator", raw)
	}

	// Scan the raw string and up to two percent-decoded forms for traversal
	// tokens and embedded null bytes. The path is not expected to be
	// URL-encoded at all; encoded traversal is always an attack.
	candidate := raw
	for i := 0; i <= decodePasses; i++ {
		if strings.ContainsRune(candidate, 0) {
			return nil, NewValidationError("path contains null byte", raw)
		}
		if containsTraversal(candidate) {
			return nil, NewValidationError("path traversal not allowed", raw)
		}
		decoded, err := url.PathUnescape(candidate)
		if err != nil || decoded == candidate {
			break
		}
		candidate = decoded
	}

	if !strings.HasPrefix(raw, "/") {
		return nil, NewValidationError("path must be workspace-absolute", raw)
	}

	cleaned := path.Clean(raw)
	if containsTraversal(cleaned) {
		return nil, NewValidationError("path traversal not allowed", raw)
	}
	if cleaned == "/" {
		return nil, NewValidationError("path names no workspace", raw)
	}

	segments := strings.Split(strings.TrimPrefix(cleaned, "/"), "/")
	if len(segments) < 2 {
		return nil, NewValidationError("path names no workspace segment", raw)
	}

	kind, ownerID, err := classifyOwner(segments[0])
	if err != nil {
		return nil, err
	}

	visibility := Visibility(segments[1])
	if visibility != VisibilityPrivate && visibility != VisibilityShared {
		return nil, NewValidationError("unknown workspace visibility", raw)
	}

	return &Path{
		OwnerKind:  kind,
		OwnerID:    ownerID,
		Visibility: visibility,
		Rel:        strings.Join(segments[2:], "/"),
	}, nil
}

// classifyOwner splits the owner segment into kind and identifier.
func classifyOwner(segment string) (OwnerKind, string, error) {
	if id, ok := strings.CutPrefix(segment, "agent-"); ok && id != "" {
		return OwnerAgent, id, nil
	}
	if id, ok := strings.CutPrefix(segment, "team-"); ok && id != "" {
		return OwnerTeam, id, nil
	}
	return "", "", NewValidationError("unknown workspace owner segment", "/"+segment)
}

// containsTraversal reports whether any slash-separated segment of s is a
// parent-directory token. Backslashes are treated as separators too so that
// Windows-style traversal does not slip through as a plain filename.
func containsTraversal(s string) bool {
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// OwnerSegment returns the combined owner path segment ("agent-scout").
func (p *Path) OwnerSegment() string {
	return string(p.OwnerKind) + "-" + p.OwnerID
}

// String reassembles the canonical workspace path.
func (p *Path) String() string {
	s := "/" + p.OwnerSegment() + "/" + string(p.Visibility)
	if p.Rel != "" {
		s += "/" + p.Rel
	}
	return s
}

// Folder returns the path of the containing visibility folder.
func (p *Path) Folder() *Path {
	return &Path{OwnerKind: p.OwnerKind, OwnerID: p.OwnerID, Visibility: p.Visibility}
}

// IsFolder reports whether the path addresses a visibility folder rather
// than a file inside it.
func (p *Path) IsFolder() bool {
	return p.Rel == ""
}

// Base returns the base filename, or "" for folder paths.
func (p *Path) Base() string {
	if p.Rel == "" {
		return ""
	}
	return path.Base(p.Rel)
}

// StorageKey returns the storage-relative key for blob stores
// ("agent-scout/private/notes.md", no leading slash).
func (p *Path) StorageKey() string {
	return strings.TrimPrefix(p.String(), "/")
}

// ValidateFilename checks a single filename supplied alongside a folder
// handle. The name must be exactly one path element: no separators, no
// traversal, no null bytes, in raw or percent-encoded form.
func ValidateFilename(name string) error {
	if name == "" {
		return NewValidationError("empty filename", "")
	}
	if strings.ContainsRune(name, 0) {
		return NewValidationError("filename contains null byte", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return NewValidationError("filename must not contain path separators", name)
	}
	candidate := name
	for i := 0; i <= decodePasses; i++ {
		if candidate == ".." || candidate == "." || containsTraversal(candidate) ||
			strings.ContainsRune(candidate, 0) || strings.ContainsAny(candidate, `/\`) {
			return NewValidationError("filename traversal not allowed", name)
		}
		decoded, err := url.PathUnescape(candidate)
		if err != nil || decoded == candidate {
			break
		}
		candidate = decoded
	}
	return nil
}

// JoinFolder appends a validated filename to a folder path.
func JoinFolder(folder *Path, filename string) (*Path, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	rel := filename
	if folder.Rel != "" {
		rel = folder.Rel + "/" + filename
	}
	return &Path{
		OwnerKind:  folder.OwnerKind,
		OwnerID:    folder.OwnerID,
		Visibility: folder.Visibility,
		Rel:        rel,
	}, nil
}
