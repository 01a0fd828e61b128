package errors

import (
	"strings"
	"unicode"
)

// maxFilenameLength bounds output filenames taken from configuration files.
const maxFilenameLength = 255

// ValidateFilename validates an output filename taken from a configuration
// file. Output files are always written below the export directory, so the
// name must be a plain basename.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or parent-directory references
//   - No hidden files
//   - Maximum length of 255 bytes
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidConfig, "output filename cannot be empty")
	}

	if len(name) > maxFilenameLength {
		return New(ErrCodeInvalidConfig, "output filename too long (max %d characters)", maxFilenameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "output filename %q contains control characters", name)
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidConfig, "output filename %q cannot contain path separators", name)
	}

	if name == ".." || strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidConfig, "output filename %q cannot be a hidden file", name)
	}

	return nil
}

// ValidatePath validates a filesystem path given on the command line or in
// an HTTP request.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateIdentifier validates a layer or element identifier used as a lookup
// key (for example from a URL). Identifiers are free-form labels in the
// drawing, so only emptiness and control characters are rejected.
func ValidateIdentifier(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s identifier cannot be empty", kind)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s identifier %q contains control characters", kind, id)
		}
	}
	return nil
}
