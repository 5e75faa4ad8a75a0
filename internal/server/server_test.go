package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/vesa/internal/config"
	"github.com/hyperjump/vesa/internal/embedding"
	"github.com/hyperjump/vesa/internal/graphdb"
	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/service"
	"github.com/hyperjump/vesa/internal/store"
	"github.com/hyperjump/vesa/internal/vector"
	"github.com/hyperjump/vesa/internal/vectordb"
)

const dims = 128

func newTestServer(t *testing.T) *httptest.Server {
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
	svc := service.New(vectordb.New(db, embedding.NewMockEmbedder(dims)), graphdb.New(db))
	srv, err := New(svc, config.ServerConfig{Host: "127.0.0.1", Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func noRedirect(t *testing.T) *http.Client {
	t.Helper()
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createDoc(t *testing.T, base, title, content string) *models.Document {
	t.Helper()
	var doc models.Document
	code := doJSON(t, http.MethodPost, base+"/api/documents", models.DocumentInput{
		Title: title, Content: content, Metadata: map[string]any{"tags": []string{"t1"}},
	}, &doc)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	return &doc
}

func TestAPI_DocumentLifecycle(t *testing.T) {
	ts := newTestServer(t)
	doc := createDoc(t, ts.URL, "First", "hello wiki")
	if doc.ID == "" || doc.Title != "First" || len(doc.Metadata.Tags) != 1 {
		t.Fatalf("created = %+v", doc)
	}

	var got models.Document
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/documents/"+doc.ID+"/", nil, &got); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if got.Content != "hello wiki" {
		t.Errorf("got = %+v", got)
	}

	var updated models.Document
	code := doJSON(t, http.MethodPut, ts.URL+"/api/documents/"+doc.ID,
		models.DocumentInput{Title: "First v2", Content: "changed"}, &updated)
	if code != http.StatusOK || updated.Title != "First v2" || len(updated.Metadata.Tags) != 1 {
		t.Errorf("update = %d %+v", code, updated)
	}

	var list []models.Document
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/documents?limit=5", nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Errorf("list = %d %d", code, len(list))
	}

	var msg map[string]string
	if code := doJSON(t, http.MethodDelete, ts.URL+"/api/documents/"+doc.ID, nil, &msg); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	if msg["status"] != "success" || msg["message"] != "Document deleted" {
		t.Errorf("delete body = %v", msg)
	}
	if code := doJSON(t, http.MethodDelete, ts.URL+"/api/documents/"+doc.ID, nil, nil); code != http.StatusNotFound {
		t.Errorf("second delete = %d", code)
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/documents/"+doc.ID, nil, nil); code != http.StatusNotFound {
		t.Errorf("get deleted = %d", code)
	}
	if code := doJSON(t, http.MethodPut, ts.URL+"/api/documents/"+doc.ID, models.DocumentInput{Title: "x"}, nil); code != http.StatusNotFound {
		t.Errorf("update deleted = %d", code)
	}
}

func TestAPI_BadBody(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/documents", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestAPI_Search(t *testing.T) {
	ts := newTestServer(t)
	createDoc(t, ts.URL, "Bread", "flour water salt yeast")
	target := createDoc(t, ts.URL, "Token", "contains the marker k9vq2w somewhere")

	var resp models.SearchResponse
	code := doJSON(t, http.MethodGet, ts.URL+"/api/documents/search?query=k9vq2w&limit=1", nil, &resp)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Results) != 1 || resp.Results[0].Document.ID != target.ID {
		t.Errorf("results = %+v", resp.Results)
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/documents/search?query=", nil, nil); code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", code)
	}
}

func TestAPI_Relationships(t *testing.T) {
	ts := newTestServer(t)
	a := createDoc(t, ts.URL, "A", "alpha")
	b := createDoc(t, ts.URL, "B", "beta")

	rel := models.Relationship{SourceID: a.ID, TargetID: b.ID, RelationshipType: "links_to"}
	var created models.Relationship
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/documents/relationships/", rel, &created); code != http.StatusCreated {
		t.Fatalf("relate status = %d", code)
	}
	if created.Properties == nil {
		t.Error("properties should default to an empty object")
	}
	missing := models.Relationship{SourceID: a.ID, TargetID: "00000000-0000-0000-0000-000000000000", RelationshipType: "x"}
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/documents/relationships", missing, nil); code != http.StatusNotFound {
		t.Errorf("relate missing status = %d", code)
	}

	var related []models.RelatedDocument
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/documents/"+a.ID+"/related?relationship_type=links_to", nil, &related); code != http.StatusOK {
		t.Fatalf("related status = %d", code)
	}
	if len(related) != 1 || related[0].Document.ID != b.ID {
		t.Errorf("related = %+v", related)
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/documents/nope/related", nil, nil); code != http.StatusNotFound {
		t.Errorf("related of missing = %d", code)
	}

	var g models.DocumentGraph
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/documents/graph?depth=1", nil, &g); code != http.StatusOK {
		t.Fatalf("graph status = %d", code)
	}
	if len(g.Nodes) != 2 || len(g.Relationships) != 1 {
		t.Errorf("graph = %d nodes %d edges", len(g.Nodes), len(g.Relationships))
	}
}

func TestAPI_StatusAndHealth(t *testing.T) {
	ts := newTestServer(t)
	createDoc(t, ts.URL, "A", "alpha")
	var st models.Status
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/status", nil, &st); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if st.Documents != 1 || !st.GraphAvailable || st.EmbeddingDimensions != dims {
		t.Errorf("status = %+v", st)
	}
	var health map[string]string
	if code := doJSON(t, http.MethodGet, ts.URL+"/health", nil, &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("health = %d %v", code, health)
	}
}

func TestPages(t *testing.T) {
	ts := newTestServer(t)
	client := noRedirect(t)

	resp, err := client.PostForm(ts.URL+"/documents/new", url.Values{
		"title": {"Page One"}, "content": {"# Heading\n\n**bold** text, see [docs](https://example.com/docs)"}, "tags": {"a, b"},
	})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/documents/") {
		t.Fatalf("location = %q", loc)
	}
	id := strings.TrimPrefix(loc, "/documents/")

	body := getPage(t, ts.URL+loc, http.StatusOK)
	for _, want := range []string{"Page One", "<strong>bold</strong>", "<span>a</span>", "<span>b</span>",
		`<li><a href="https://example.com/docs">docs</a></li>`} {
		if !strings.Contains(body, want) {
			t.Errorf("view page missing %q", want)
		}
	}
	if body := getPage(t, ts.URL+loc+"/edit", http.StatusOK); !strings.Contains(body, `value="a, b"`) {
		t.Error("edit form should list tags comma separated")
	}

	resp, err = client.PostForm(ts.URL+loc+"/edit", url.Values{"title": {"Page Two"}, "content": {"new"}, "tags": {""}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != loc {
		t.Errorf("edit = %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if body := getPage(t, ts.URL+"/", http.StatusOK); !strings.Contains(body, "Page Two") {
		t.Error("home page should list the document")
	}
	if body := getPage(t, ts.URL+"/search?q=new", http.StatusOK); !strings.Contains(body, "Page Two") {
		t.Error("search page should show the document")
	}
	getPage(t, ts.URL+"/graph", http.StatusOK)
	getPage(t, ts.URL+"/documents/new", http.StatusOK)

	resp, err = client.PostForm(ts.URL+loc+"/delete", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Errorf("delete = %d", resp.StatusCode)
	}
	if body := getPage(t, ts.URL+"/documents/"+id, http.StatusNotFound); !strings.Contains(body, "404") {
		t.Error("error page should show the status")
	}
}

func TestPages_Relate(t *testing.T) {
	ts := newTestServer(t)
	a := createDoc(t, ts.URL, "Source", "s")
	b := createDoc(t, ts.URL, "Target", "t")
	resp, err := noRedirect(t).PostForm(ts.URL+"/documents/"+a.ID+"/relate",
		url.Values{"target_id": {b.ID}, "relationship_type": {"cites"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("relate status = %d", resp.StatusCode)
	}
	body := getPage(t, ts.URL+"/documents/"+a.ID, http.StatusOK)
	if !strings.Contains(body, fmt.Sprintf(`cites: <a href="/documents/%s">Target</a>`, b.ID)) {
		t.Error("view page should list the related document")
	}
}

func getPage(t *testing.T, url string, wantStatus int) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	return string(b)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.NotFound("get", "document", "x"), http.StatusNotFound},
		{store.NewError("op", store.KindInvalid, "bad"), http.StatusBadRequest},
		{store.NewError("op", store.KindWriteConflict, "busy"), http.StatusConflict},
		{store.NewError("op", store.KindStoreUnavailable, "down"), http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
