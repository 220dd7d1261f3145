package errors

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxCodeBytes bounds the size of a snippet accepted for evaluation.
const MaxCodeBytes = 64 << 10

// Output formats understood by the renderer.
var validFormats = map[string]bool{
	"dot":  true,
	"json": true,
	"svg":  true,
	"png":  true,
	"pdf":  true,
}

// ValidateCode checks a snippet before evaluation.
//
// Validation rules:
//   - Maximum size of MaxCodeBytes
//   - Valid UTF-8
//   - No null bytes
//
// Empty code is valid and evaluates to an empty receiver.
func ValidateCode(code string) error {
	if len(code) > MaxCodeBytes {
		return New(ErrCodeInvalidCode, "code too large (max %d bytes)", MaxCodeBytes)
	}
	if !utf8.ValidString(code) {
		return New(ErrCodeInvalidCode, "code is not valid UTF-8")
	}
	if strings.ContainsRune(code, 0) {
		return New(ErrCodeInvalidCode, "code contains null bytes")
	}
	return nil
}

// ValidateFormat checks an output format name.
func ValidateFormat(format string) error {
	if !validFormats[format] {
		return New(ErrCodeInvalidFormat, "unknown format %q (want dot, json, svg, png or pdf)", format)
	}
	return nil
}

// ValidateRankDir checks a Graphviz layout direction.
func ValidateRankDir(dir string) error {
	switch dir {
	case "", "TB", "LR", "BT", "RL":
		return nil
	}
	return New(ErrCodeInvalidRankDir, "unknown rankdir %q (want TB, LR, BT or RL)", dir)
}

// ValidateSnippetName checks the display name of a saved snippet.
// It rejects names that could be used for terminal or log injection.
func ValidateSnippetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidSnippet, "snippet name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidSnippet, "snippet name too long (max 128 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSnippet, "snippet name contains invalid control characters")
		}
	}
	return nil
}

// ValidateSnippetID checks that id is a UUID as issued by the snippet stores.
func ValidateSnippetID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidSnippet, err, "invalid snippet id %q", id)
	}
	return nil
}
