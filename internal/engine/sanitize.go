package engine

import (
	"regexp"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	jsSchemeRe   = regexp.MustCompile(`(?i)javascript:`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// sanitizeInput strips markup and script schemes from player text and
// collapses whitespace runs. Narrative punctuation is left alone.
func sanitizeInput(input string) string {
	s := tagRe.ReplaceAllString(input, "")
	s = jsSchemeRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
