// Package markdown renders wiki pages and pulls links, tags and previews out
// of their Markdown source.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/hyperjump/vesa/pkg/utils"
)

// DefaultPreviewLength is the preview size used by the web pages.
const DefaultPreviewLength = 200

var (
	renderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	linkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	tagPattern  = regexp.MustCompile(`(?:^|\s)#([a-zA-Z0-9_-]+)`)

	headingPattern = regexp.MustCompile(`#+\s+`)
	imagePattern   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	emphasis       = regexp.MustCompile(`[*_~]{1,2}(.*?)[*_~]{1,2}`)
	codePattern    = regexp.MustCompile("(?s)`{1,3}.*?`{1,3}")
	spaces         = regexp.MustCompile(`\s+`)
)

// Link is a Markdown [text](url) link. Start and End are byte offsets.
type Link struct {
	Text  string `json:"text"`
	URL   string `json:"url"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Render converts Markdown to HTML with GitHub flavored extensions.
// Raw HTML in the source is omitted.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExtractLinks returns every inline link in src in order.
func ExtractLinks(src string) []Link {
	matches := linkPattern.FindAllStringSubmatchIndex(src, -1)
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, Link{
			Text:  src[m[2]:m[3]],
			URL:   src[m[4]:m[5]],
			Start: m[0],
			End:   m[1],
		})
	}
	return links
}

// ExtractTags returns the distinct #hashtags of src in first-seen order.
func ExtractTags(src string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, m := range tagPattern.FindAllStringSubmatch(src, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}

// Preview strips Markdown formatting from src and truncates it to maxLen
// bytes. maxLen <= 0 uses DefaultPreviewLength.
func Preview(src string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}
	text := codePattern.ReplaceAllString(src, "")
	text = imagePattern.ReplaceAllString(text, "")
	text = headingPattern.ReplaceAllString(text, "")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = emphasis.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(spaces.ReplaceAllString(text, " "))
	return utils.Truncate(text, maxLen)
}
