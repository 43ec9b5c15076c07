package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFrontMatter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes front matter block",
			input:    "---\ntitle: Hamsters\ntags: [pets]\n---\nBody text",
			expected: "Body text",
		},
		{
			name:     "no front matter returns unchanged",
			input:    "Just a note",
			expected: "Just a note",
		},
		{
			name:     "unterminated front matter returns unchanged",
			input:    "---\ntitle: broken\nno closing",
			expected: "---\ntitle: broken\nno closing",
		},
		{
			name:     "horizontal rule mid-document untouched",
			input:    "intro\n---\nrest",
			expected: "intro\n---\nrest",
		},
		{
			name:     "front matter only yields empty",
			input:    "---\ntitle: empty\n---",
			expected: "",
		},
		{
			name:     "byte order mark before front matter",
			input:    "\ufeff---\ntitle: Hamsters\n---\nBody text",
			expected: "Body text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripFrontMatter(tt.input))
		})
	}
}

func TestNormalise(t *testing.T) {
	input := "---\ntitle: Note\n---\n# Heading\n\nSome **bold** text with [a link](https://example.com).\n\n```go\ncode is dropped\n```\n\n- item one\n- item two\n"

	got := Normalise(input)

	assert.NotContains(t, got, "#")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "https://example.com")
	assert.NotContains(t, got, "code is dropped")
	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "Some bold text with a link.")
	assert.Contains(t, got, "item one")
}

func TestNormaliseEmptyAfterStripping(t *testing.T) {
	assert.Empty(t, Normalise("---\ntitle: only front matter\n---\n"))
	assert.Empty(t, Normalise("```\nonly code\n```"))
}
