// ABOUTME: Tests for agent markdown rendering
// ABOUTME: Verifies basic conversion and that plain text survives untouched

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentMarkdown_Basic(t *testing.T) {
	html := string(AgentMarkdown("hello **world**"))
	assert.Contains(t, html, "<strong>world</strong>")
}

func TestAgentMarkdown_PlainText(t *testing.T) {
	html := string(AgentMarkdown("just a sentence"))
	assert.Contains(t, html, "just a sentence")
}

func TestAgentMarkdown_List(t *testing.T) {
	html := string(AgentMarkdown("- one\n- two"))
	assert.Contains(t, html, "<li>")
	assert.Equal(t, 2, strings.Count(html, "<li>"))
}
