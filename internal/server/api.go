package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.docs.Status(r.Context())
	if err != nil {
		s.respondFailure(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := s.docs.Create(r.Context(), &input)
	if err != nil {
		s.respondFailure(w, "create document", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 10)
	docs, err := s.docs.List(r.Context(), offset, limit)
	if err != nil {
		s.respondFailure(w, "list documents", err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, "get document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := s.docs.Update(r.Context(), chi.URLParam(r, "id"), &input)
	if err != nil {
		s.respondFailure(w, "update document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondFailure(w, "delete document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Document deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := models.SearchQuery{Query: r.URL.Query().Get("query"), Limit: queryInt(r, "limit", 10)}
	s.logger.Debug("search request", zap.String("query", q.Query), zap.Int("limit", q.Limit))
	resp, err := s.docs.Search(r.Context(), q)
	if err != nil {
		s.respondFailure(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRelate(w http.ResponseWriter, r *http.Request) {
	var rel models.Relationship
	if err := json.NewDecoder(r.Body).Decode(&rel); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if rel.Properties == nil {
		rel.Properties = map[string]any{}
	}
	if err := s.docs.Relate(r.Context(), &rel); err != nil {
		s.respondFailure(w, "relate documents", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, rel)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := s.docs.Get(ctx, id); err != nil {
		s.respondFailure(w, "related documents", err)
		return
	}
	related, err := s.docs.GetRelated(ctx, id, r.URL.Query().Get("relationship_type"))
	if err != nil {
		s.respondFailure(w, "related documents", err)
		return
	}
	s.respondJSON(w, http.StatusOK, related)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.docs.GetGraph(r.Context(), queryInt(r, "depth", 2))
	if err != nil {
		s.respondFailure(w, "graph", err)
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure logs err at a level matching its status and writes it.
func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}
