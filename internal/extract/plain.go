package extract

import (
	"strings"
	"unicode/utf8"
)

// fromPlain returns Markdown and text files as they are, with invalid UTF-8
// replaced and line endings normalized to \n.
func fromPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}
