package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// stripPasses bounds how many layers of entity-encoded markup StripTags peels off.
const stripPasses = 4

var (
	sanitizer = newContentPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// newContentPolicy is the UGC policy widened for rendered markdown: heading anchors,
// highlighted code blocks and task-list checkboxes.
func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	return p
}

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// StripTags reduces input to plain text: tags are dropped and entities decoded, so
// "Tom's <3" stays as typed. Passes repeat until the text is stable, which keeps encoded
// tags such as "&lt;b&gt;" from surviving as markup. The result is not HTML-safe and must
// be escaped wherever it is rendered.
func StripTags(input string) string {
	out := input
	for i := 0; i < stripPasses; i++ {
		next := html.UnescapeString(stripper.Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return out
}
