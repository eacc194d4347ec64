package tts

import (
	"regexp"
	"strings"
)

var (
	// Characters the engines handle reliably: letters and digits in any
	// script, whitespace, and basic sentence punctuation. Everything else
	// is stripped.
	allowedCharsRegex   = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?"']`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// Normalize prepares raw input text for synthesis: it strips characters the
// engines can't speak (emoji, markdown leftovers, control characters),
// collapses runs of whitespace, and trims the ends. The result may be empty,
// in which case no synthesis should be attempted.
func Normalize(text string) string {
	text = allowedCharsRegex.ReplaceAllString(text, "")
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
