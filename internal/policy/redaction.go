package policy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// LogPreviewMaxRunes bounds transcript and reply text written to logs.
const LogPreviewMaxRunes = 160

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Cards before phones, otherwise long card numbers match the phone pattern.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}

// RedactForLog prepares user speech or model output for a log line: PII is
// masked, whitespace collapsed and the result capped at LogPreviewMaxRunes.
func RedactForLog(text string) string {
	out, _ := RedactPII(text)
	out = strings.Join(strings.Fields(out), " ")
	if utf8.RuneCountInString(out) <= LogPreviewMaxRunes {
		return out
	}
	runes := []rune(out)
	return string(runes[:LogPreviewMaxRunes]) + "…"
}
