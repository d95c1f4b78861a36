package extract

import (
	"strings"
	"testing"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"inline tags", "<p>Hello <strong>world</strong>!</p>", "Hello world!"},
		{"entities", "<p>Hello &amp; goodbye &lt;world&gt;</p>", "Hello & goodbye <world>"},
		{"quotes", "<p>&quot;quoted&quot; it&#39;s</p>", "\"quoted\" it's"},
		{"block tags separate words", "<p>First</p><p>Second</p>", "First Second"},
		{"whitespace collapses", "<div>\n  a \t\n b  </div>", "a b"},
		{"nbsp", "one&nbsp;two", "one two"},
		{"double-encoded stays encoded once", "&amp;lt;", "&lt;"},
		{"plain text", "no markup", "no markup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.html); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.html, got, tt.want)
			}
		})
	}
}

func TestStripHTML_scriptAndStyle(t *testing.T) {
	html := "<p>Before</p><script>alert('hi');</script><STYLE>p { color: red; }</STYLE><p>After</p>"
	text := StripHTML(html)
	if !strings.Contains(text, "Before") || !strings.Contains(text, "After") {
		t.Errorf("visible text missing: %q", text)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color") {
		t.Errorf("script or style content leaked: %q", text)
	}
}
