package handlers

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// sanitizeText strips every HTML tag from s, unescapes the entities the
// policy introduced and trims surrounding whitespace.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func sanitizeTextPtr(s *string) {
	if s != nil {
		*s = sanitizeText(*s)
	}
}
