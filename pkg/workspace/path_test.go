package workspace

import (
	"testing"
)

// TestParsePathClassification verifies that well-formed workspace paths are
// normalized and classified into owner, visibility and relative file path.
func TestParsePathClassification(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		kind       OwnerKind
		ownerID    string
		visibility Visibility
		rel        string
	}{
		{
			name:       "agent private file",
			raw:        "/agent-scout/private/notes.md",
			kind:       OwnerAgent,
			ownerID:    "scout",
			visibility: VisibilityPrivate,
			rel:        "notes.md",
		},
		{
			name:       "team shared file",
			raw:        "/team-research/shared/report.pdf",
			kind:       OwnerTeam,
			ownerID:    "research",
			visibility: VisibilityShared,
			rel:        "report.pdf",
		},
		{
			name:       "folder path without file",
			raw:        "/agent-scout/shared",
			kind:       OwnerAgent,
			ownerID:    "scout",
			visibility: VisibilityShared,
			rel:        "",
		},
		{
			name:       "nested relative path",
			raw:        "/team-research/shared/reports/q3/summary.md",
			kind:       OwnerTeam,
			ownerID:    "research",
			visibility: VisibilityShared,
			rel:        "reports/q3/summary.md",
		},
		{
			name:       "redundant separators collapse",
			raw:        "//agent-scout//private/./notes.md",
			kind:       OwnerAgent,
			ownerID:    "scout",
			visibility: VisibilityPrivate,
			rel:        "notes.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePath(tt.raw)
			if err != nil {
				t.Fatalf("ParsePath(%q) failed: %v", tt.raw, err)
			}
			if p.OwnerKind != tt.kind {
				t.Errorf("owner kind = %q, want %q", p.OwnerKind, tt.kind)
			}
			if p.OwnerID != tt.ownerID {
				t.Errorf("owner id = %q, want %q", p.OwnerID, tt.ownerID)
			}
			if p.Visibility != tt.visibility {
				t.Errorf("visibility = %q, want %q", p.Visibility, tt.visibility)
			}
			if p.Rel != tt.rel {
				t.Errorf("rel = %q, want %q", p.Rel, tt.rel)
			}
		})
	}
}

// TestParsePathRejection verifies that malformed, traversing or encoded
// paths are rejected with a validation error before any classification.
func TestParsePathRejection(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty path", ""},
		{"bare root", "/"},
		{"relative path", "agent-scout/private/notes.md"},
		{"plain traversal", "/agent-scout/private/../../etc/passwd"},
		{"traversal to sibling workspace", "/agent-scout/private/../../agent-other/private/x.md"},
		{"traversal hidden behind dot segments", "/agent-scout/private/./..//notes.md"},
		{"percent encoded traversal", "/agent-scout/private/%2e%2e/%2e%2e/secret.md"},
		{"uppercase percent encoded traversal", "/agent-scout/private/%2E%2E/secret.md"},
		{"double percent encoded traversal", "/agent-scout/private/%252e%252e/secret.md"},
		{"null byte", "/agent-scout/private/notes.md\x00.exe"},
		{"encoded null byte", "/agent-scout/private/notes%00.md"},
		{"backslash separator", `/agent-scout/private/..\..\secret.md`},
		{"missing visibility", "/agent-scout"},
		{"unknown visibility", "/agent-scout/protected/notes.md"},
		{"unknown owner kind", "/robot-scout/private/notes.md"},
		{"owner kind without id", "/agent-/private/notes.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePath(tt.raw)
			if err == nil {
				t.Fatalf("ParsePath(%q) = %v, want rejection", tt.raw, p)
			}
			if !IsCode(err, ErrValidation) {
				t.Errorf("ParsePath(%q) error code = %v, want ErrValidation", tt.raw, err)
			}
		})
	}
}

// TestPathRoundTrip verifies String/StorageKey/Folder invariants.
func TestPathRoundTrip(t *testing.T) {
	p, err := ParsePath("/team-research/shared/reports/q3.md")
	if err != nil {
		t.Fatalf("ParsePath failed: %v", err)
	}

	if got := p.String(); got != "/team-research/shared/reports/q3.md" {
		t.Errorf("String() = %q", got)
	}
	if got := p.StorageKey(); got != "team-research/shared/reports/q3.md" {
		t.Errorf("StorageKey() = %q", got)
	}
	if got := p.Base(); got != "q3.md" {
		t.Errorf("Base() = %q", got)
	}
	if p.IsFolder() {
		t.Error("file path reported as folder")
	}

	folder := p.Folder()
	if got := folder.String(); got != "/team-research/shared" {
		t.Errorf("Folder().String() = %q", got)
	}
	if !folder.IsFolder() {
		t.Error("folder path not reported as folder")
	}
}

// TestValidateFilename verifies single-element filename validation used by
// the handle-based operations.
func TestValidateFilename(t *testing.T) {
	valid := []string{"notes.md", "q3 report.pdf", "data_2024.csv", "IMG.PNG"}
	for _, name := range valid {
		if err := ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		".",
		"..",
		"../notes.md",
		"a/b.md",
		`a\b.md`,
		"%2e%2e",
		"%252e%252e",
		"notes\x00.md",
		"notes%00.md",
	}
	for _, name := range invalid {
		if err := ValidateFilename(name); err == nil {
			t.Errorf("ValidateFilename(%q) = nil, want error", name)
		}
	}
}

// TestJoinFolder verifies filename joining onto folder paths.
func TestJoinFolder(t *testing.T) {
	folder, err := ParsePath("/agent-scout/shared")
	if err != nil {
		t.Fatalf("ParsePath failed: %v", err)
	}

	p, err := JoinFolder(folder, "notes.md")
	if err != nil {
		t.Fatalf("JoinFolder failed: %v", err)
	}
	if got := p.String(); got != "/agent-scout/shared/notes.md" {
		t.Errorf("joined path = %q", got)
	}

	if _, err := JoinFolder(folder, "../escape.md"); err == nil {
		t.Error("JoinFolder accepted traversal filename")
	}
}
