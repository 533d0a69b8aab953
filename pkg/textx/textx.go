// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Summary truncates text to at most maxLen runes, preferring to cut at the
// last sentence or line boundary when one exists past 70% of the target so the
// result does not stop mid-sentence.
func Summary(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	cut := runes[:maxLen]
	boundary := -1
	for i, r := range cut {
		if r == '.' || r == '\n' {
			boundary = i
		}
	}
	if boundary > (maxLen*7)/10 {
		cut = cut[:boundary+1]
	}
	return strings.TrimSpace(string(cut))
}
