package service

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	descriptionEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	descriptionPolicy = bluemonday.UGCPolicy()
)

// renderDescription converts operator-written markdown into sanitized HTML.
// A conversion failure falls back to the escaped plain text.
func renderDescription(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := descriptionEngine.Convert([]byte(source), &buf); err != nil {
		return descriptionPolicy.Sanitize(source)
	}
	return strings.TrimSpace(string(descriptionPolicy.SanitizeBytes(buf.Bytes())))
}

// mediaURL joins a stored relative path with the media base URL.
// Absolute http(s) paths are returned untouched.
func mediaURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	return base + "/" + strings.TrimLeft(path, "/")
}
