// Package markdown normalises knowledge-store notes into plain
// searchable text: YAML front matter and markdown markup are stripped
// before the text enters the corpus or the lexical index.
package markdown

import (
	"regexp"
	"strings"
)

var (
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`[^`]+`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote   = regexp.MustCompile(`(?m)^>\s*`)
	hr           = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// Normalise converts a raw note to plain text. Front matter is removed
// first, then markup. The result may be empty; callers drop empty
// documents from the corpus.
func Normalise(content string) string {
	content = StripFrontMatter(content)
	return stripMarkdown(content)
}

// StripFrontMatter removes a leading YAML front-matter block delimited
// by "---" lines. Content without front matter is returned unchanged.
func StripFrontMatter(content string) string {
	trimmed := strings.TrimLeft(content, "\uFEFF")
	if !strings.HasPrefix(trimmed, "---") {
		return content
	}

	rest := trimmed[3:]
	if len(rest) > 0 && rest[0] != '\n' && !strings.HasPrefix(rest, "\r\n") {
		// "---" was a horizontal rule or heading underline, not front matter.
		return content
	}

	end := strings.Index(rest, "\n---")
	if end < 0 {
		return content
	}

	after := rest[end+len("\n---"):]
	// The closing delimiter must sit on its own line.
	if nl := strings.IndexByte(after, '\n'); nl >= 0 {
		if strings.TrimSpace(after[:nl]) != "" {
			return content
		}
		return after[nl+1:]
	}
	if strings.TrimSpace(after) != "" {
		return content
	}
	return ""
}

// stripMarkdown removes common markdown formatting for plain text content.
// This is a simplified implementation that handles common cases.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")

	// Convert links [text](url) to just text
	content = links.ReplaceAllString(content, "$1")

	content = headings.ReplaceAllString(content, "")

	// Remove bold/italic markers
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewline.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
