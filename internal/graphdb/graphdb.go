// Package graphdb keeps the graph overlay: document nodes and typed
// relationships between them.
package graphdb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/store"
)

// Node is a document node. Content is never stored in the graph.
type Node struct {
	ID        string
	Title     string
	Metadata  map[string]any
	CreatedAt string
	UpdatedAt string
}

// Edge is a typed relationship row. Duplicate edges may exist.
type Edge struct {
	SourceID   string
	TargetID   string
	RelType    string
	Properties map[string]any
	CreatedAt  string
	UpdatedAt  string
}

// Related is a target node reached through an edge.
type Related struct {
	Node
	RelType    string
	Properties map[string]any
}

// Graph is the full node and edge set.
type Graph struct {
	Nodes []*Node
	Edges []*Edge
}

// Store is the graph store facade.
type Store struct {
	db     *store.DB
	logger *zap.Logger
	now    func() time.Time
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

// WithClock overrides time.Now for node and edge timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a graph Store over db.
func New(db *store.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks that the store answers and the graph relations exist.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return err
	}
	names, err := s.db.Relations(ctx)
	if err != nil {
		return err
	}
	found := 0
	for _, n := range names {
		if n == store.DocumentRelation || n == store.RelationshipRelation {
			found++
		}
	}
	if found != 2 {
		return store.NewError("ping graph", store.KindStoreUnavailable, "graph relations are missing")
	}
	return nil
}

// CreateNode upserts a node.
func (s *Store) CreateNode(ctx context.Context, id, title string, metadata map[string]any) error {
	ts := store.Timestamp(s.now())
	return s.db.Put(ctx, store.DocumentRelation, store.Record{
		"id":         id,
		"title":      title,
		"content":    "",
		"metadata":   store.NormalizeMetadata(metadata),
		"created_at": ts,
		"updated_at": ts,
	})
}

// CreateRelationship inserts an edge. Neither endpoint has to exist.
func (s *Store) CreateRelationship(ctx context.Context, sourceID, targetID, relType string, properties map[string]any) error {
	ts := store.Timestamp(s.now())
	return s.db.Put(ctx, store.RelationshipRelation, store.Record{
		"source_id":  sourceID,
		"target_id":  targetID,
		"rel_type":   relType,
		"properties": store.NormalizeMetadata(properties),
		"created_at": ts,
		"updated_at": ts,
	})
}

// GetRelated returns the nodes targeted by edges leaving id, optionally only
// edges of relType. Edges whose target node is missing are skipped.
func (s *Store) GetRelated(ctx context.Context, id, relType string) ([]*Related, error) {
	query := `SELECT d.id, d.title, d.metadata, d.created_at, d.updated_at, r.rel_type, r.properties
		FROM relationship r JOIN document d ON d.id = r.target_id
		WHERE r.source_id = ?`
	args := []any{id}
	if relType != "" {
		query += ` AND r.rel_type = ?`
		args = append(args, relType)
	}
	query += ` ORDER BY r.created_at, d.id`
	res, err := s.db.Run(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*Related, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = &Related{
			Node:       *s.node(row[:5]),
			RelType:    store.AsString(row[5]),
			Properties: s.decode(row[6], "properties", id),
		}
	}
	return out, nil
}

// DeleteNode removes the node and every edge where it is source or target.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	return s.db.Batch(ctx,
		store.Statement{Query: `DELETE FROM relationship WHERE source_id = ? OR target_id = ?`, Args: []any{id, id}},
		store.Statement{Query: `DELETE FROM document WHERE id = ?`, Args: []any{id}},
	)
}

// GetGraph returns every node and edge. depth is accepted for API
// compatibility and does not limit the result.
func (s *Store) GetGraph(ctx context.Context, depth int) (*Graph, error) {
	s.logger.Debug("loading full graph", zap.Int("depth", depth))
	nodes, err := s.db.Run(ctx, `SELECT id, title, metadata, created_at, updated_at FROM document ORDER BY id`)
	if err != nil {
		return nil, err
	}
	edges, err := s.db.Run(ctx,
		`SELECT source_id, target_id, rel_type, properties, created_at, updated_at FROM relationship ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	g := &Graph{Nodes: make([]*Node, len(nodes.Rows)), Edges: make([]*Edge, len(edges.Rows))}
	for i, row := range nodes.Rows {
		g.Nodes[i] = s.node(row)
	}
	for i, row := range edges.Rows {
		g.Edges[i] = &Edge{
			SourceID:   store.AsString(row[0]),
			TargetID:   store.AsString(row[1]),
			RelType:    store.AsString(row[2]),
			Properties: s.decode(row[3], "properties", store.AsString(row[0])),
			CreatedAt:  store.AsString(row[4]),
			UpdatedAt:  store.AsString(row[5]),
		}
	}
	return g, nil
}

// NodeIDs lists every node ID.
func (s *Store) NodeIDs(ctx context.Context) ([]string, error) {
	res, err := s.db.Run(ctx, `SELECT id FROM document ORDER BY id`)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		ids[i] = store.AsString(row[0])
	}
	return ids, nil
}

// Counts returns the number of nodes and edges.
func (s *Store) Counts(ctx context.Context) (nodes, edges int64, err error) {
	if nodes, err = s.db.Count(ctx, store.DocumentRelation); err != nil {
		return 0, 0, err
	}
	if edges, err = s.db.Count(ctx, store.RelationshipRelation); err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

func (s *Store) node(row []any) *Node {
	id := store.AsString(row[0])
	return &Node{
		ID:        id,
		Title:     store.AsString(row[1]),
		Metadata:  s.decode(row[2], "metadata", id),
		CreatedAt: store.AsString(row[3]),
		UpdatedAt: store.AsString(row[4]),
	}
}

func (s *Store) decode(v any, field, id string) map[string]any {
	m, err := store.DecodeObject(v)
	if err != nil {
		s.logger.Warn("undecodable graph json, using empty map",
			zap.String("field", field), zap.String("id", id), zap.Error(err))
		return map[string]any{}
	}
	return m
}
