// Package vectordb stores embedded documents in the vector_document relation
// and answers similarity searches over them.
package vectordb

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/embedding"
	"github.com/hyperjump/vesa/internal/store"
)

const relation = store.VectorDocumentRelation

// Record is a stored document projection.
type Record struct {
	ID        string
	Content   string
	Metadata  map[string]any
	CreatedAt string
	UpdatedAt string
}

// Hit is a similarity search result. Score is 1/(1+Distance).
type Hit struct {
	Record
	Distance float64
	Score    float64
}

// Store is the document store facade.
type Store struct {
	db       *store.DB
	embedder embedding.Embedder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over db that embeds content with embedder.
func New(db *store.DB, embedder embedding.Embedder, opts ...Option) *Store {
	s := &Store{db: db, embedder: embedder, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add embeds content and upserts the record.
func (s *Store) Add(ctx context.Context, id, content string, metadata map[string]any) error {
	emb, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return &store.Error{Op: "add " + id, Kind: store.KindUnknown, Err: err}
	}
	ts := store.Timestamp(s.now())
	return s.db.Put(ctx, relation, store.Record{
		"id":         id,
		"content":    content,
		"embedding":  emb,
		"metadata":   store.NormalizeMetadata(metadata),
		"created_at": ts,
		"updated_at": ts,
	})
}

// Update re-embeds content and replaces the record in one statement.
func (s *Store) Update(ctx context.Context, id, content string, metadata map[string]any) error {
	return s.Add(ctx, id, content, metadata)
}

// Get returns the record for id, or an error matching store.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	res, err := s.db.Run(ctx,
		`SELECT id, content, metadata, created_at, updated_at FROM vector_document WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, store.NotFound("get", "document", id)
	}
	return s.record(res.Rows[0]), nil
}

// Delete removes the record and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	return s.db.Delete(ctx, relation, id)
}

// Search embeds query and returns up to limit nearest records, closest first.
// A blank query or non-positive limit yields no hits.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*Hit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &store.Error{Op: "search", Kind: store.KindUnknown, Err: err}
	}
	neighbors, err := s.db.Nearest(ctx, relation, emb, limit)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	args := make([]any, len(neighbors))
	marks := make([]string, len(neighbors))
	for i, n := range neighbors {
		args[i] = n.Key
		marks[i] = "?"
	}
	res, err := s.db.Run(ctx,
		`SELECT id, content, metadata, created_at, updated_at FROM vector_document WHERE id IN (`+strings.Join(marks, ", ")+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Record, len(res.Rows))
	for _, row := range res.Rows {
		r := s.record(row)
		byID[r.ID] = r
	}

	hits := make([]*Hit, 0, len(neighbors))
	for _, n := range neighbors {
		r, ok := byID[n.Key]
		if !ok {
			continue
		}
		hits = append(hits, &Hit{Record: *r, Distance: n.Distance, Score: 1 / (1 + n.Distance)})
	}
	return hits, nil
}

// List returns records ordered by most recent update.
func (s *Store) List(ctx context.Context, offset, limit int) ([]*Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.db.Run(ctx,
		`SELECT id, content, metadata, created_at, updated_at FROM vector_document
		 ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = s.record(row)
	}
	return out, nil
}

// IDs returns every stored document ID.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	res, err := s.db.Run(ctx, `SELECT id FROM vector_document ORDER BY id`)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		ids[i] = store.AsString(row[0])
	}
	return ids, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.db.Count(ctx, relation)
}

// Dimensions returns the embedding provider's dimension.
func (s *Store) Dimensions() int {
	return s.embedder.Dimensions()
}

func (s *Store) record(row []any) *Record {
	r := &Record{
		ID:        store.AsString(row[0]),
		Content:   store.AsString(row[1]),
		CreatedAt: store.AsString(row[3]),
		UpdatedAt: store.AsString(row[4]),
	}
	meta, err := store.DecodeObject(row[2])
	if err != nil {
		s.logger.Warn("undecodable document metadata, using empty metadata",
			zap.String("id", r.ID), zap.Error(err))
		meta = map[string]any{}
	}
	r.Metadata = meta
	return r
}
