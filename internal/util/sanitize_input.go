package util

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes markup; an unterminated tag swallows the rest of the input.
func StripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	return s
}

// SanitizeInput escapes HTML/script-like characters
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}

// FilterInput runs the request filter chain: strip tags, trim, escape entities.
func FilterInput(s string) string {
	return SanitizeInput(StripTags(s))
}
