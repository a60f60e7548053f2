// Package redact scrubs sensitive information from strings before they are
// logged. Error chains in this service can carry provider API keys, database
// connection strings and filesystem paths; nothing from this set may reach
// the log stream verbatim.
package redact

import "regexp"

// Redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
)

var redactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// Database connection strings with embedded credentials
	{regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`), RedactedCredentialPlaceholder + "@"},

	// Provider API keys and bearer tokens
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|bearer|authorization)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), "$1$2" + RedactedCredentialPlaceholder},

	// Query parameters carrying keys (e.g. ?key=... on provider URLs)
	{regexp.MustCompile(`(?i)([?&](?:key|token|api_key)=)[^&\s]+`), "$1" + RedactedCredentialPlaceholder},

	// Absolute filesystem paths
	{regexp.MustCompile(`(/[\w.-]+){3,}`), RedactedPathPlaceholder},
}

// String redacts sensitive values from s.
func String(s string) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// Error redacts sensitive values from an error's message. Returns "" for a
// nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
