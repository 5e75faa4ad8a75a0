// Package fileid derives stable document IDs for imported files.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// DocID returns a UUIDv5 for the cleaned path, so re-importing the same file
// updates the same document.
func DocID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.Clean(path))).String()
}
