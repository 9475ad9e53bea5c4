package audit

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	docketPattern = regexp.MustCompile(`\b\d{1,2}:\d{2}-[a-zA-Z]{2}-\d{3,6}\b`)
)

// RedactPII masks high-risk identifying patterns before journal or post
// content is persisted. Docket numbers could tie a pseudonymous entry back
// to a sitting judge, so they are treated like contact details.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	next = docketPattern.ReplaceAllString(out, "[REDACTED_DOCKET]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}
