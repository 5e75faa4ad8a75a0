package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/vesa/internal/fileid"
	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/store"
)

type memDocs struct {
	docs    map[string]*models.Document
	updates int
}

func newMemDocs() *memDocs { return &memDocs{docs: map[string]*models.Document{}} }

func (m *memDocs) Get(_ context.Context, id string) (*models.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, store.NotFound("get", "document", id)
	}
	return d, nil
}

func (m *memDocs) put(input *models.DocumentInput) *models.Document {
	d := &models.Document{ID: input.ID, Title: input.Title, Content: input.Content}
	d.Metadata.Path, _ = input.Metadata["path"].(string)
	d.Metadata.Tags, _ = input.Metadata["tags"].([]string)
	m.docs[d.ID] = d
	return d
}

func (m *memDocs) Create(_ context.Context, input *models.DocumentInput) (*models.Document, error) {
	return m.put(input), nil
}

func (m *memDocs) Update(_ context.Context, id string, input *models.DocumentInput) (*models.Document, error) {
	if _, ok := m.docs[id]; !ok {
		return nil, store.NotFound("update", "document", id)
	}
	m.updates++
	return m.put(input), nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return store.NotFound("delete", "document", id)
	}
	delete(m.docs, id)
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestImportFile(t *testing.T) {
	docs := newMemDocs()
	im := New(docs)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "garden.md")
	writeFile(t, path, "# Garden Plan\n\nPlant #tomatoes and #basil.\n")

	outcome, err := im.ImportFile(ctx, path)
	if err != nil || outcome != Created {
		t.Fatalf("first import = %v, %v", outcome, err)
	}
	doc := docs.docs[fileid.DocID(path)]
	if doc == nil {
		t.Fatal("document not stored under the path-derived id")
	}
	if doc.Title != "Garden Plan" || doc.Metadata.Path != path {
		t.Errorf("doc = %+v", doc)
	}
	if len(doc.Metadata.Tags) != 2 || doc.Metadata.Tags[0] != "tomatoes" {
		t.Errorf("tags = %v", doc.Metadata.Tags)
	}

	if outcome, err := im.ImportFile(ctx, path); err != nil || outcome != Unchanged {
		t.Errorf("re-import = %v, %v", outcome, err)
	}
	writeFile(t, path, "# Garden Plan\n\nNow with #peppers.\n")
	if outcome, err := im.ImportFile(ctx, path); err != nil || outcome != Updated {
		t.Errorf("changed import = %v, %v", outcome, err)
	}
	if docs.updates != 1 {
		t.Errorf("updates = %d", docs.updates)
	}

	if err := im.RemoveFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	if len(docs.docs) != 0 {
		t.Error("document survived RemoveFile")
	}
	if err := im.RemoveFile(ctx, path); err != nil {
		t.Errorf("second RemoveFile = %v", err)
	}
}

func TestImportFile_rejects(t *testing.T) {
	im := New(newMemDocs(), WithExtensions("md"))
	dir := t.TempDir()
	txt := filepath.Join(dir, "a.txt")
	writeFile(t, txt, "text")
	if _, err := im.ImportFile(context.Background(), txt); err == nil {
		t.Error("expected .txt to be rejected")
	}
	if _, err := im.ImportFile(context.Background(), filepath.Join(dir, "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
	if got := im.Extensions(); len(got) != 1 || got[0] != ".md" {
		t.Errorf("Extensions() = %v", got)
	}
}

func TestImportDirectory(t *testing.T) {
	docs := newMemDocs()
	im := New(docs)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.md"), "# One")
	writeFile(t, filepath.Join(root, "two.txt"), "plain two")
	writeFile(t, filepath.Join(root, "skip.bin"), "binary")
	writeFile(t, filepath.Join(root, "sub", "three.md"), "three")
	writeFile(t, filepath.Join(root, ".hidden", "four.md"), "four")
	writeFile(t, filepath.Join(root, "bad.docx"), "not a zip")

	ctx := context.Background()
	sum, err := im.ImportDirectory(ctx, root, false)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created != 2 || sum.Failed != 1 {
		t.Errorf("flat summary = %+v", sum)
	}

	sum, err = im.ImportDirectory(ctx, root, true)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created != 1 || sum.Unchanged != 2 || sum.Failed != 1 {
		t.Errorf("recursive summary = %+v", sum)
	}
	if doc := docs.docs[fileid.DocID(filepath.Join(root, "sub", "three.md"))]; doc == nil || doc.Title != "three" {
		t.Errorf("three.md = %+v", doc)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		path, content, want string
	}{
		{"/x/note.md", "intro\n# Real Title\n## sub", "Real Title"},
		{"/x/note.md", "## only h2", "note"},
		{"/x/report.final.pdf", "", "report.final"},
		{"/x/a.md", "#hashtag line", "a"},
	}
	for _, tt := range tests {
		if got := Title(tt.path, tt.content); got != tt.want {
			t.Errorf("Title(%q, %q) = %q, want %q", tt.path, tt.content, got, tt.want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if Created.String() != "created" || Updated.String() != "updated" || Unchanged.String() != "unchanged" {
		t.Error("unexpected outcome names")
	}
}
