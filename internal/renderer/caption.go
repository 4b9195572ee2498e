package renderer

import (
	"fmt"
	"regexp"
	"strings"
)

// captionPattern matches figure/table labels followed by caption text, e.g.
// "Figure 2: revenue trend" or "Fig. 8-6 memory layout".
var captionPattern = regexp.MustCompile(`(?i)\b(figure|fig\.?|table|chart|diagram)\s+(\d+[-.]?\d*)\s*[:.]?\s*([^\n]{0,120})`)

// DeriveCaption extracts a caption for the imageIndex-th image on a page from
// the page's text. Captions are matched positionally: the n-th caption label
// on the page is assumed to describe the n-th image. When no label is found,
// a generic fallback naming the document and page is returned.
func DeriveCaption(pageText, filename string, pageNumber, imageIndex int) string {
	matches := captionPattern.FindAllStringSubmatch(pageText, -1)

	if imageIndex < len(matches) {
		m := matches[imageIndex]
		label := strings.TrimSpace(m[1])
		number := strings.TrimSpace(m[2])
		text := strings.TrimSpace(m[3])
		if text != "" {
			return fmt.Sprintf("%s %s: %s", normalizeLabel(label), number, text)
		}
		return fmt.Sprintf("%s %s", normalizeLabel(label), number)
	}

	return fmt.Sprintf("Image %d from %s, page %d", imageIndex+1, filename, pageNumber)
}

func normalizeLabel(label string) string {
	l := strings.ToLower(strings.TrimSuffix(label, "."))
	switch l {
	case "fig":
		l = "figure"
	}
	return strings.ToUpper(l[:1]) + l[1:]
}
