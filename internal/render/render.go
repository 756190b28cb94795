// ABOUTME: Markdown rendering of agent replies for the view layer
// ABOUTME: Converts agent turn text to HTML, falling back to escaped plain text

package render

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/yuin/goldmark"
)

// AgentMarkdown converts an agent turn's markdown text to HTML for the
// widget's message list. Conversion failures fall back to the escaped
// plain text rather than dropping the turn.
func AgentMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		slog.Debug("markdown conversion failed", "component", "render", "error", err)
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// EscapeText escapes user-authored text for embedding in HTML. User turns
// are never treated as markdown.
func EscapeText(text string) string {
	return template.HTMLEscapeString(text)
}
