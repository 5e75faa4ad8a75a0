package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/store"
)

// Relate links two existing documents. It writes nothing when the graph is
// unavailable.
func (s *Service) Relate(ctx context.Context, rel *models.Relationship) error {
	if rel == nil || rel.SourceID == "" || rel.TargetID == "" || rel.RelationshipType == "" {
		return store.NewError("relate", store.KindInvalid, "source_id, target_id and relationship_type are required")
	}
	for _, id := range []string{rel.SourceID, rel.TargetID} {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	if !s.graphAvailable {
		s.logger.Debug("graph unavailable, relationship not stored",
			zap.String("source_id", rel.SourceID), zap.String("target_id", rel.TargetID))
		return nil
	}
	if err := s.graph.CreateRelationship(ctx, rel.SourceID, rel.TargetID, rel.RelationshipType, rel.Properties); err != nil {
		return fmt.Errorf("relate: %w", err)
	}
	return nil
}

// GetRelated returns documents targeted by id's outgoing relationships,
// optionally only those of relType. It is empty when the graph is unavailable.
func (s *Service) GetRelated(ctx context.Context, id, relType string) ([]*models.RelatedDocument, error) {
	if !s.graphAvailable {
		return []*models.RelatedDocument{}, nil
	}
	rows, err := s.graph.GetRelated(ctx, id, relType)
	if err != nil {
		return nil, err
	}
	out := make([]*models.RelatedDocument, 0, len(rows))
	for _, r := range rows {
		doc, err := s.Get(ctx, r.ID)
		if isNotFound(err) {
			s.logger.Debug("related node has no document", zap.String("id", r.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &models.RelatedDocument{
			Document:         doc,
			RelationshipType: r.RelType,
			Properties:       r.Properties,
		})
	}
	return out, nil
}

// GetGraph returns every document node and relationship. depth does not
// limit the result.
func (s *Service) GetGraph(ctx context.Context, depth int) (*models.DocumentGraph, error) {
	g := &models.DocumentGraph{Nodes: []*models.Document{}, Relationships: []*models.Relationship{}}
	if !s.graphAvailable {
		return g, nil
	}
	raw, err := s.graph.GetGraph(ctx, depth)
	if err != nil {
		return nil, err
	}
	for _, n := range raw.Nodes {
		doc, err := s.Get(ctx, n.ID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		g.Nodes = append(g.Nodes, doc)
	}
	for _, e := range raw.Edges {
		g.Relationships = append(g.Relationships, &models.Relationship{
			SourceID:         e.SourceID,
			TargetID:         e.TargetID,
			RelationshipType: e.RelType,
			Properties:       e.Properties,
		})
	}
	return g, nil
}
