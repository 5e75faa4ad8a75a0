package fileid

import (
	"testing"

	"github.com/google/uuid"
)

func TestDocID(t *testing.T) {
	id := DocID("/notes/garden.md")
	if id != DocID("/notes/garden.md") {
		t.Error("same path gave different IDs")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("DocID is not a UUID: %q", id)
	}
	if parsed.Version() != 5 {
		t.Errorf("version = %d, want 5", parsed.Version())
	}
	if id == DocID("/notes/kitchen.md") {
		t.Error("different paths gave the same ID")
	}
}

func TestDocID_cleansPath(t *testing.T) {
	want := DocID("/notes/garden.md")
	for _, p := range []string{"/notes/./garden.md", "/notes//garden.md", "/notes/x/../garden.md"} {
		if got := DocID(p); got != want {
			t.Errorf("DocID(%q) = %q, want %q", p, got, want)
		}
	}
}
