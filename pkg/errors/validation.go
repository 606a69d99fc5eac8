package errors

import (
	"os"
	"strings"
	"unicode"
)

// ValidateRulePaths validates a list of ruleset directory paths.
// Every path must exist and be a directory; the list must not be empty.
func ValidateRulePaths(paths []string) error {
	if len(paths) == 0 {
		return New(ErrCodeInvalidPath, "no ruleset paths given")
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return Wrap(ErrCodeInvalidPath, err, "invalid directory path: %s", p)
		}
		if !info.IsDir() {
			return New(ErrCodeInvalidPath, "not a directory: %s", p)
		}
	}
	return nil
}

// ValidateRuleID validates a rule identifier for safety.
// Rule identifiers are opaque keys but still end up in URLs, log lines and
// storage keys, so control characters and path separators are rejected.
func ValidateRuleID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidRule, "rule identifier cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidRule, "rule identifier too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidRule, "rule identifier contains control characters")
		}
	}

	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidRule, "rule identifier cannot contain path separators")
	}

	return nil
}

// ValidateArtifactName validates a persisted artifact name for safety.
// It ensures the name is a simple basename without path components.
func ValidateArtifactName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "artifact name cannot be empty")
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "artifact name cannot contain path separators")
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidInput, "artifact name cannot be a hidden file")
	}

	return nil
}
