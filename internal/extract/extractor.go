// Package extract converts importable files into Markdown page bodies.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type convertFunc func(content []byte) (string, error)

var converters = map[string]convertFunc{
	".md":       fromPlain,
	".markdown": fromPlain,
	".txt":      fromPlain,
	".pdf":      fromPDF,
	".xlsx":     fromExcel,
	".docx":     fromDOCX,
}

// Supported reports whether files with extension ext can be converted.
func Supported(ext string) bool {
	_, ok := converters[strings.ToLower(ext)]
	return ok
}

// Extensions lists the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(converters))
	for ext := range converters {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// File reads path and converts it to Markdown.
func File(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return Bytes(content, filepath.Ext(path))
}

// Bytes converts content with the converter registered for ext.
func Bytes(content []byte, ext string) (string, error) {
	ext = strings.ToLower(ext)
	convert, ok := converters[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
	return convert(content)
}
