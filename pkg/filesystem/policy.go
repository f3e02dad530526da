package filesystem

import (
	"path"
	"strings"

	"github.com/atelierhq/wardenfs/pkg/workspace"
)

// MaxFileBytes is the per-file content ceiling. Writes of exactly this size
// are allowed; one byte more is rejected.
const MaxFileBytes = 5 * 1024 * 1024

// Caller-facing policy violation messages. Callers match on these, so the
// wording is part of the contract.
const (
	errFileTypeNotAllowed = "file type not allowed"
	errFileTooLarge       = "file size exceeds maximum allowed size"
)

// allowedExtensions is the closed whitelist of file types agents may store:
// document, data and image formats. Executable and script extensions are
// deliberately absent, and lookups are case-insensitive. The value is the
// media type reported in file entries.
var allowedExtensions = map[string]string{
	// Documents
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".pdf":      "application/pdf",
	".doc":      "application/msword",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":      "application/vnd.ms-excel",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",

	// Data
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".xml":  "application/xml",
	".toml": "application/toml",

	// Images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// checkExtension rejects filenames whose extension is not whitelisted.
// A filename without any extension is rejected too.
func checkExtension(filename string) error {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return workspace.NewValidationError(errFileTypeNotAllowed, filename)
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return workspace.NewValidationError(errFileTypeNotAllowed, filename)
	}
	return nil
}

// checkSize rejects content above the per-file ceiling.
func checkSize(n int, p string) error {
	if n > MaxFileBytes {
		return workspace.NewValidationError(errFileTooLarge, p)
	}
	return nil
}

// mimeTypeFor returns the media type for a whitelisted filename. Files
// whose extension has no registered type report as an opaque byte stream.
func mimeTypeFor(filename string) string {
	if mt, ok := allowedExtensions[strings.ToLower(path.Ext(filename))]; ok {
		return mt
	}
	return "application/octet-stream"
}
