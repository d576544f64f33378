// Package readability extracts article body text from HTML (spec §4.2,
// §9: "any mature extractor suffices; on exception fall back to
// strip-tags-and-whitespace"). No HTML-parsing library appears in any
// example repo's go.mod, so only the spec's own defined fallback is
// implemented here — a regexp/strings-based strip, never an exception, so
// there is no separate "primary extractor" to fall back from.
package readability

import (
	"regexp"
	"strings"
)

var (
	scriptOrStyle = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	anyTag        = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Extract strips <script>/<style> blocks and all remaining tags from html,
// collapses whitespace, and trims the result. It never errors — the spec
// requires the fallback to always be defined.
func Extract(html string) string {
	stripped := scriptOrStyle.ReplaceAllString(html, " ")
	stripped = anyTag.ReplaceAllString(stripped, " ")
	stripped = whitespace.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}
