// Package redact scrubs identifying details from error text before it is
// logged or shown to a client: the fixed user identity carried on every
// backend request, local file paths of imported books, backend hosts and
// stack traces.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	RedactionPlaceholder    = "[REDACTED]"
	RedactedPathPlaceholder = "[REDACTED_PATH]"
	RedactedHostPlaceholder = "[REDACTED_HOST]"
	RedactedUserPlaceholder = "[REDACTED_USER]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// rules run in order; the user identity must be scrubbed before the URL
// that carries it is reduced to a host placeholder.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(user_id|sender_id)=[^&\s"]+`), "${1}=" + RedactedUserPlaceholder},
	{regexp.MustCompile(`(?i)"(user_id|sender_id)"\s*:\s*"[^"]*"`), `"${1}":"` + RedactedUserPlaceholder + `"`},
	{regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.-]*://[^/\s"?]+`), RedactedHostPlaceholder},
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
	{regexp.MustCompile(`(^|[\s"'(=])(?:/[\w .-]+){2,}`), "${1}" + RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\\s]+(\\[^\\\s]+)+`), RedactedPathPlaceholder},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[REDACTED_EMAIL]"},
}

// String redacts the input.
func String(input string) string {
	if input == "" {
		return input
	}
	out := input
	for _, r := range rules {
		out = r.pattern.ReplaceAllString(out, r.placeholder)
	}
	return out
}

// Error redacts err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
