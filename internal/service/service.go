// Package service presents one logical wiki document over the vector store,
// the graph overlay and the keyword index.
//
// The vector store is authoritative. Graph and keyword writes are mirrors:
// their failures are logged and counted but never fail the caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/config"
	"github.com/hyperjump/vesa/internal/graphdb"
	"github.com/hyperjump/vesa/internal/keyword"
	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/store"
	"github.com/hyperjump/vesa/internal/vectordb"
)

const graphProbeTimeout = 5 * time.Second

// Service is the document service.
type Service struct {
	vectors *vectordb.Store
	graph   *graphdb.Store
	keyword keyword.Index
	logger  *zap.Logger
	now     func() time.Time

	search         config.SearchConfig
	graphEnabled   bool
	graphAvailable bool
	diskPaths      []string

	mirrorFailures atomic.Int64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeywordIndex enables hybrid search and keyword mirroring.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(s *Service) { s.keyword = idx }
}

// WithSearchConfig sets search limits and fusion weights.
func WithSearchConfig(cfg config.SearchConfig) Option {
	return func(s *Service) { s.search = cfg }
}

// WithGraphEnabled turns the graph overlay off when false.
func WithGraphEnabled(enabled bool) Option {
	return func(s *Service) { s.graphEnabled = enabled }
}

// WithDiskPaths sets the files and directories counted by Status.
func WithDiskPaths(paths ...string) Option {
	return func(s *Service) { s.diskPaths = paths }
}

// WithClock overrides time.Now for metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service. The graph is probed once here; if the probe fails the
// graph stays unavailable for the life of the service.
func New(vectors *vectordb.Store, graph *graphdb.Store, opts ...Option) *Service {
	s := &Service{
		vectors:      vectors,
		graph:        graph,
		logger:       zap.NewNop(),
		now:          time.Now,
		graphEnabled: true,
		search: config.SearchConfig{
			DefaultLimit:   10,
			MaxLimit:       100,
			SemanticWeight: 0.7,
			KeywordWeight:  0.3,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.graphAvailable = s.probeGraph()
	return s
}

func (s *Service) probeGraph() bool {
	if !s.graphEnabled || s.graph == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), graphProbeTimeout)
	defer cancel()
	if err := s.graph.Ping(ctx); err != nil {
		s.logger.Warn("graph store unavailable, relationships disabled", zap.Error(err))
		return false
	}
	return true
}

// GraphAvailable reports whether the graph overlay is in use.
func (s *Service) GraphAvailable() bool { return s.graphAvailable }

// MirrorFailures returns the number of failed graph or keyword mirror writes.
func (s *Service) MirrorFailures() int64 { return s.mirrorFailures.Load() }

// Create stores a new document. input.ID is used when it is a valid UUID.
func (s *Service) Create(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	if input == nil {
		return nil, store.NewError("create document", store.KindInvalid, "missing input")
	}
	id := uuid.NewString()
	if input.ID != "" {
		if _, err := uuid.Parse(input.ID); err == nil {
			id = input.ID
		}
	}
	now := s.now().UTC()
	doc := &models.Document{
		ID:      id,
		Title:   input.Title,
		Content: input.Content,
		Metadata: models.DocumentMetadata{
			CreatedAt: now,
			UpdatedAt: now,
			Tags:      []string{},
		},
	}
	applyMetadata(&doc.Metadata, input.Metadata)
	if err := s.write(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// Get reads a document from the vector store.
func (s *Service) Get(ctx context.Context, id string) (*models.Document, error) {
	rec, err := s.vectors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.fromRecord(rec), nil
}

// Update replaces title and content and merges metadata into the existing
// document. Keys absent from input.Metadata keep their previous values.
func (s *Service) Update(ctx context.Context, id string, input *models.DocumentInput) (*models.Document, error) {
	if input == nil {
		return nil, store.NewError("update document", store.KindInvalid, "missing input")
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Title = input.Title
	doc.Content = input.Content
	applyMetadata(&doc.Metadata, input.Metadata)
	doc.Metadata.UpdatedAt = s.now().UTC()
	if err := s.write(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return doc, nil
}

// Delete removes a document. A missing document is a NotFound error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	deleted, err := s.vectors.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if !deleted {
		return store.NotFound("delete document", "document", id)
	}
	if s.graphAvailable {
		if err := s.graph.DeleteNode(ctx, id); err != nil {
			s.mirrorFailed("graph delete", id, err)
		}
	}
	if s.keyword != nil {
		if err := s.keyword.Delete(ctx, id); err != nil {
			s.mirrorFailed("keyword delete", id, err)
		}
	}
	return nil
}

// List returns recently updated documents.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = s.search.DefaultLimit
	}
	recs, err := s.vectors.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	docs := make([]*models.Document, len(recs))
	for i, rec := range recs {
		docs[i] = s.fromRecord(rec)
	}
	return docs, nil
}

// write stores doc in the vector store and mirrors it.
func (s *Service) write(ctx context.Context, doc *models.Document) error {
	meta := storedMetadata(doc)
	if err := s.vectors.Add(ctx, doc.ID, doc.Content, meta); err != nil {
		return err
	}
	s.mirror(ctx, doc, meta)
	return nil
}

func (s *Service) mirror(ctx context.Context, doc *models.Document, meta map[string]any) {
	if s.graphAvailable {
		if err := s.graph.CreateNode(ctx, doc.ID, doc.Title, meta); err != nil {
			s.mirrorFailed("graph node", doc.ID, err)
		}
	}
	if s.keyword != nil {
		if err := s.keyword.Index(ctx, doc); err != nil {
			s.mirrorFailed("keyword index", doc.ID, err)
		}
	}
}

func (s *Service) mirrorFailed(op, id string, err error) {
	s.mirrorFailures.Add(1)
	s.logger.Warn("mirror write failed",
		zap.String("op", op), zap.String("id", id), zap.Error(err))
}

func (s *Service) fromRecord(rec *vectordb.Record) *models.Document {
	doc := &models.Document{ID: rec.ID, Content: rec.Content}
	doc.Title = parseMetadata(&doc.Metadata, rec.Metadata, s.now)
	return doc
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
