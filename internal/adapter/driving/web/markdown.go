package web

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	// Raw HTML in the source is omitted by goldmark, and the sanitizer
	// catches anything that slips through link or image attributes.
	mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))
	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderNotice converts a notice message (inline markdown) to sanitized HTML.
// Returns empty string for blank input.
func RenderNotice(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(msg), &buf); err != nil {
		return htmlSanitizer.Sanitize(msg)
	}

	return strings.TrimSpace(htmlSanitizer.Sanitize(buf.String()))
}
