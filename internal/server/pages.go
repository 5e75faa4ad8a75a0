package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/markdown"
	"github.com/hyperjump/vesa/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "view", "form", "search", "graph", "error"}

// pageSet holds one template per page, each parsed with the shared layout.
type pageSet struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"markdown": func(src string) (template.HTML, error) {
		html, err := markdown.Render(src)
		return template.HTML(html), err
	},
	"preview": func(src string) string { return markdown.Preview(src, markdown.DefaultPreviewLength) },
	"join":    strings.Join,
	"date":    func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
}

func loadPages() (*pageSet, error) {
	ps := &pageSet{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		ps.pages[name] = t
	}
	return ps, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := s.pages.pages[name].Execute(&buf, data); err != nil {
		s.logger.Error("render page failed", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", map[string]any{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}

func (s *Server) pageFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	}
	s.renderError(w, r, status, err.Error())
}

func (s *Server) pageHome(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context(), 0, 10)
	if err != nil {
		s.pageFailure(w, r, "home", err)
		return
	}
	s.render(w, r, http.StatusOK, "home", map[string]any{"Title": "Home", "Documents": docs})
}

func (s *Server) pageNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "form", map[string]any{"Title": "New document", "IsNew": true})
}

// formInput reads the title, content and comma separated tags of a page form.
func formInput(r *http.Request) (*models.DocumentInput, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	tags := []string{}
	for _, t := range strings.Split(r.PostForm.Get("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return &models.DocumentInput{
		Title:    r.PostForm.Get("title"),
		Content:  r.PostForm.Get("content"),
		Metadata: map[string]any{"tags": tags},
	}, nil
}

func (s *Server) pageCreate(w http.ResponseWriter, r *http.Request) {
	input, err := formInput(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	doc, err := s.docs.Create(r.Context(), input)
	if err != nil {
		s.pageFailure(w, r, "create document", err)
		return
	}
	http.Redirect(w, r, "/documents/"+doc.ID, http.StatusSeeOther)
}

func (s *Server) pageView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := s.docs.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.pageFailure(w, r, "view document", err)
		return
	}
	related, err := s.docs.GetRelated(ctx, doc.ID, "")
	if err != nil {
		s.logger.Warn("related documents unavailable", zap.String("id", doc.ID), zap.Error(err))
	}
	s.render(w, r, http.StatusOK, "view", map[string]any{
		"Title":    doc.Title,
		"Document": doc,
		"Related":  related,
		"Links":    markdown.ExtractLinks(doc.Content),
	})
}

func (s *Server) pageEdit(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.pageFailure(w, r, "edit document", err)
		return
	}
	s.render(w, r, http.StatusOK, "form", map[string]any{"Title": "Edit " + doc.Title, "Document": doc})
}

func (s *Server) pageUpdate(w http.ResponseWriter, r *http.Request) {
	input, err := formInput(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.docs.Update(r.Context(), id, input); err != nil {
		s.pageFailure(w, r, "update document", err)
		return
	}
	http.Redirect(w, r, "/documents/"+id, http.StatusSeeOther)
}

func (s *Server) pageDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.pageFailure(w, r, "delete document", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) pageRelate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	id := chi.URLParam(r, "id")
	rel := &models.Relationship{
		SourceID:         id,
		TargetID:         strings.TrimSpace(r.PostForm.Get("target_id")),
		RelationshipType: strings.TrimSpace(r.PostForm.Get("relationship_type")),
		Properties:       map[string]any{},
	}
	if err := s.docs.Relate(r.Context(), rel); err != nil {
		s.pageFailure(w, r, "relate documents", err)
		return
	}
	http.Redirect(w, r, "/documents/"+id, http.StatusSeeOther)
}

func (s *Server) pageSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	data := map[string]any{"Title": "Search", "Query": q}
	if q != "" {
		resp, err := s.docs.Search(r.Context(), models.SearchQuery{Query: q})
		if err != nil {
			s.pageFailure(w, r, "search", err)
			return
		}
		data["Results"] = resp.Results
	}
	s.render(w, r, http.StatusOK, "search", data)
}

func (s *Server) pageGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.docs.GetGraph(r.Context(), 2)
	if err != nil {
		s.pageFailure(w, r, "graph", err)
		return
	}
	titles := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		titles[n.ID] = n.Title
	}
	s.render(w, r, http.StatusOK, "graph", map[string]any{"Title": "Graph", "Graph": g, "Titles": titles})
}
