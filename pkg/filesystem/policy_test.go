package filesystem

import "testing"

func TestCheckExtension(t *testing.T) {
	allowed := []string{
		"notes.txt",
		"report.md",
		"README.MD",
		"data.CSV",
		"config.Yaml",
		"diagram.svg",
		"photo.JPEG",
		"export.xlsx",
	}
	for _, name := range allowed {
		if err := checkExtension(name); err != nil {
			t.Errorf("checkExtension(%q) = %v, want nil", name, err)
		}
	}

	rejected := []string{
		"run.exe",
		"script.sh",
		"tool.bin",
		"page.html",
		"archive.tar.gz",
		"noextension",
		"trailingdot.",
		".hidden",
	}
	for _, name := range rejected {
		if err := checkExtension(name); err == nil {
			t.Errorf("checkExtension(%q) = nil, want error", name)
		}
	}
}

func TestCheckSize(t *testing.T) {
	if err := checkSize(MaxFileBytes, "/agent-a/private/big.txt"); err != nil {
		t.Errorf("checkSize at exact limit = %v, want nil", err)
	}
	if err := checkSize(MaxFileBytes+1, "/agent-a/private/big.txt"); err == nil {
		t.Error("checkSize one past limit = nil, want error")
	}
	if err := checkSize(0, "/agent-a/private/empty.txt"); err != nil {
		t.Errorf("checkSize(0) = %v, want nil", err)
	}
}

func TestMimeTypeFor(t *testing.T) {
	cases := map[string]string{
		"notes.txt":   "text/plain",
		"report.MD":   "text/markdown",
		"data.json":   "application/json",
		"photo.jpeg":  "image/jpeg",
		"unknown.xyz": "application/octet-stream",
	}
	for name, want := range cases {
		if got := mimeTypeFor(name); got != want {
			t.Errorf("mimeTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
