package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxNodeIDLength bounds node identifiers read from tree files.
const maxNodeIDLength = 256

// ValidateNodeID validates a node identifier read from a tree description.
//
// The validation rules are intentionally conservative:
//   - No empty IDs
//   - No control characters or whitespace (fields are whitespace-delimited)
//   - Maximum length of 256 characters
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidNode, "node ID cannot be empty")
	}

	if len(id) > maxNodeIDLength {
		return New(ErrCodeInvalidNode, "node ID too long (max %d characters)", maxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidNode, "node ID %q contains whitespace or control characters", id)
		}
	}

	return nil
}

// ValidateCount validates an observed case count.
func ValidateCount(name string, v int) error {
	if v < 0 {
		return New(ErrCodeInvalidInput, "%s must be non-negative, got %d", name, v)
	}
	return nil
}

// ValidateMeasure validates an expected measure. NaN and infinities are
// rejected along with negative values.
func ValidateMeasure(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidInput, "%s must be finite, got %v", name, v)
	}
	if v < 0 {
		return New(ErrCodeInvalidInput, "%s must be non-negative, got %v", name, v)
	}
	return nil
}

// ValidateFilePath validates a user supplied file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
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
