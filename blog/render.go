package blog

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
)

// sanitizer strips script-capable HTML from rendered output. Post
// content comes from an admin, but it still travels through the same
// pipeline as everything else user-shaped, so no raw passthrough.
var sanitizer = bluemonday.UGCPolicy()

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// On a render error, fall back to the sanitized source so the
		// page still shows something.
		return sanitizer.Sanitize(content)
	}
	return sanitizer.Sanitize(buf.String())
}
