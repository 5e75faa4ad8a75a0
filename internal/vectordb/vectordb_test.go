package vectordb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/embedding"
	"github.com/hyperjump/vesa/internal/store"
	"github.com/hyperjump/vesa/internal/vector"
)

const dims = 128

func newTestStore(t *testing.T) (*Store, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "vesa.db"),
		store.WithRelations(store.DefaultRelations(dims, vector.Cosine)...))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.EnsureSchemas(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	return New(db, embedding.NewMockEmbedder(dims), WithLogger(zap.NewNop())), db
}

func TestAddGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	err := s.Add(ctx, "doc-1", "# Hello", map[string]any{"title": "Hello", "created_at": created, "tags": []string{"a", "b"}})
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Content != "# Hello" || rec.Metadata["title"] != "Hello" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Metadata["created_at"] != "2024-05-01T09:00:00.000000000Z" {
		t.Errorf("created_at = %v, want RFC 3339 string", rec.Metadata["created_at"])
	}
	if tags, ok := rec.Metadata["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("tags = %#v", rec.Metadata["tags"])
	}
	if rec.CreatedAt == "" || rec.UpdatedAt == "" {
		t.Error("record timestamps not set")
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestAdd_NilMetadata(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if err := s.Add(ctx, "n", "body", nil); err != nil {
		t.Fatal(err)
	}
	rec, err := s.Get(ctx, "n")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Metadata == nil || len(rec.Metadata) != 0 {
		t.Errorf("metadata = %#v, want empty map", rec.Metadata)
	}
}

func TestGet_TolerantMetadata(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	_ = s.Add(ctx, "broken", "x", map[string]any{"title": "x"})
	_ = s.Add(ctx, "double", "y", map[string]any{"title": "y"})
	if _, err := db.Execute(ctx, `UPDATE vector_document SET metadata = ? WHERE id = ?`, "{not json", "broken"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Execute(ctx, `UPDATE vector_document SET metadata = ? WHERE id = ?`, `"{\"title\":\"y\"}"`, "double"); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Get(ctx, "broken")
	if err != nil {
		t.Fatalf("Get(broken) = %v", err)
	}
	if len(rec.Metadata) != 0 {
		t.Errorf("broken metadata = %v, want empty", rec.Metadata)
	}
	rec, err = s.Get(ctx, "double")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Metadata["title"] != "y" {
		t.Errorf("double-encoded metadata = %v", rec.Metadata)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_ = s.Add(ctx, "d", "old text", map[string]any{"title": "old"})
	if err := s.Update(ctx, "d", "new text", map[string]any{"title": "new"}); err != nil {
		t.Fatal(err)
	}
	rec, _ := s.Get(ctx, "d")
	if rec.Content != "new text" || rec.Metadata["title"] != "new" {
		t.Errorf("after update = %+v", rec)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	deleted, err := s.Delete(ctx, "d")
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}
	deleted, err = s.Delete(ctx, "d")
	if err != nil || deleted {
		t.Fatalf("second Delete = %v, %v", deleted, err)
	}
}

func TestSearch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_ = s.Add(ctx, "graph", "typed links between wiki pages form a graph", nil)
	_ = s.Add(ctx, "bread", "banana bread needs ripe bananas", nil)
	_ = s.Add(ctx, "token", "this page mentions qv7zrt2 once", nil)

	hits, err := s.Search(ctx, "qv7zrt2", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].ID != "token" {
		t.Errorf("top hit = %s, want token", hits[0].ID)
	}
	for _, h := range hits {
		if h.Score <= 0 || h.Score > 1 {
			t.Errorf("score %f out of (0,1]", h.Score)
		}
		if want := 1 / (1 + h.Distance); h.Score != want {
			t.Errorf("score = %f, want 1/(1+d) = %f", h.Score, want)
		}
	}
	if hits[0].Distance > hits[1].Distance {
		t.Error("hits not ordered by distance")
	}

	if hits, _ := s.Search(ctx, "   ", 5); len(hits) != 0 {
		t.Errorf("blank query hits = %d", len(hits))
	}
	if hits, _ := s.Search(ctx, "graph", 0); len(hits) != 0 {
		t.Errorf("zero limit hits = %d", len(hits))
	}
}

func TestListAndIDs(t *testing.T) {
	s, db := newTestStore(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s = New(db, embedding.NewMockEmbedder(dims), WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Add(ctx, id, "content "+id, nil); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := s.List(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "c" || recs[1].ID != "b" {
		t.Errorf("List = %v", recs)
	}
	recs, _ = s.List(ctx, 2, 2)
	if len(recs) != 1 || recs[0].ID != "a" {
		t.Errorf("List page 2 = %v", recs)
	}
	ids, _ := s.IDs(ctx)
	if len(ids) != 3 || ids[0] != "a" {
		t.Errorf("IDs = %v", ids)
	}
	if s.Dimensions() != dims {
		t.Errorf("Dimensions = %d", s.Dimensions())
	}
}
