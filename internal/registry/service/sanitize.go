package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainText = bluemonday.StrictPolicy()

// sanitizeText strips all markup from user supplied display text and
// returns it unescaped. Rendering is responsible for escaping.
func sanitizeText(s string, maxLen int) string {
	s = html.UnescapeString(plainText.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if maxLen > 0 && len([]rune(s)) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return s
}
