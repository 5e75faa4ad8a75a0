package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	defaultDocumentPart = "word/document.xml"
	contentTypesPart    = "[Content_Types].xml"
	mainDocumentType    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	overridePattern  = regexp.MustCompile(`<Override\s[^>]*>`)
	partNamePattern  = regexp.MustCompile(`PartName="/?([^"]+)"`)
	paragraphPattern = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>|<w:p/>`)
	runTextPattern   = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	headingPattern   = regexp.MustCompile(`<w:pStyle w:val="Heading([1-6])"`)
)

// fromDOCX turns the paragraphs of a Word document into Markdown paragraphs.
// Paragraphs styled Heading1 to Heading6 become ATX headings.
func fromDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("docx is not a zip archive: %w", err)
	}
	part := defaultDocumentPart
	if types, err := readPart(zr, contentTypesPart); err == nil {
		if p := mainPart(types); p != "" {
			part = p
		}
	}
	body, err := readPart(zr, part)
	if err != nil {
		return "", err
	}

	var paragraphs []string
	for _, p := range paragraphPattern.FindAllString(body, -1) {
		var text strings.Builder
		for _, run := range runTextPattern.FindAllStringSubmatch(p, -1) {
			text.WriteString(html.UnescapeString(run[1]))
		}
		line := strings.TrimSpace(text.String())
		if line == "" {
			continue
		}
		if m := headingPattern.FindStringSubmatch(p); m != nil {
			line = strings.Repeat("#", int(m[1][0]-'0')) + " " + line
		}
		paragraphs = append(paragraphs, line)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// mainPart finds the main document part declared in [Content_Types].xml.
func mainPart(types string) string {
	for _, o := range overridePattern.FindAllString(types, -1) {
		if !strings.Contains(o, `ContentType="`+mainDocumentType+`"`) {
			continue
		}
		if m := partNamePattern.FindStringSubmatch(o); m != nil {
			return m[1]
		}
	}
	return ""
}

func readPart(zr *zip.Reader, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("docx part %s not found", name)
}
