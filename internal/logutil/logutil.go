package logutil

import (
	"strings"
	"unicode/utf8"
)

// IsSensitiveLogField returns true when a key likely contains sensitive data.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch {
	case strings.Contains(normalized, "token"):
		return true
	case strings.Contains(normalized, "secret"):
		return true
	case strings.Contains(normalized, "password"):
		return true
	case strings.Contains(normalized, "accesskey"):
		return true
	default:
		return false
	}
}

// RedactValue redacts a value when the key looks sensitive.
func RedactValue(key, value string) string {
	if value == "" {
		return ""
	}
	if IsSensitiveLogField(key) {
		return "[REDACTED]"
	}
	return value
}

// TruncateForLog returns a single-line truncated preview for unstructured
// values such as page text content and browser console messages.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	if maxChars <= 0 || utf8.RuneCountInString(normalized) <= maxChars {
		return normalized
	}
	return string([]rune(normalized)[:maxChars]) + "... [truncated]"
}

// CollapseSpace trims text content and folds internal whitespace runs into a
// single space, the way a reader sees rendered text.
func CollapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Preview returns the first maxChars runes of value followed by "...", as
// printed for long descriptions.
func Preview(value string, maxChars int) string {
	collapsed := CollapseSpace(value)
	runes := []rune(collapsed)
	if maxChars <= 0 || len(runes) <= maxChars {
		return collapsed
	}
	return string(runes[:maxChars]) + "..."
}
