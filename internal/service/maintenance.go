package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/store"
)

// Status reports counts and health of the stores.
func (s *Service) Status(ctx context.Context) (*models.Status, error) {
	docs, err := s.vectors.Count(ctx)
	if err != nil {
		return nil, err
	}
	st := &models.Status{
		Documents:           docs,
		GraphAvailable:      s.graphAvailable,
		GraphMirrorFailures: s.MirrorFailures(),
		EmbeddingDimensions: s.vectors.Dimensions(),
	}
	if s.graphAvailable {
		if st.GraphNodes, st.GraphRelationships, err = s.graph.Counts(ctx); err != nil {
			return nil, err
		}
	}
	if s.keyword != nil {
		n, err := s.keyword.DocCount()
		if err != nil {
			return nil, fmt.Errorf("keyword doc count: %w", err)
		}
		st.KeywordDocuments = int64(n)
	}
	if len(s.diskPaths) > 0 {
		if st.DiskUsageBytes, err = store.DiskUsageBytes(s.diskPaths...); err != nil {
			s.logger.Warn("disk usage unavailable", zap.Error(err))
		}
	}
	return st, nil
}

// Repair rebuilds the graph nodes and keyword index from the vector store.
// Graph nodes without a vector document are removed with their edges.
func (s *Service) Repair(ctx context.Context) (*models.RepairReport, error) {
	ids, err := s.vectors.IDs(ctx)
	if err != nil {
		return nil, err
	}
	report := &models.RepairReport{Documents: len(ids)}
	live := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
		doc, err := s.Get(ctx, id)
		if err != nil {
			return report, err
		}
		if s.graphAvailable {
			if err := s.graph.CreateNode(ctx, doc.ID, doc.Title, storedMetadata(doc)); err != nil {
				return report, fmt.Errorf("repair graph node %s: %w", id, err)
			}
			report.NodesMirrored++
		}
		if s.keyword != nil {
			if err := s.keyword.Index(ctx, doc); err != nil {
				return report, fmt.Errorf("repair keyword index %s: %w", id, err)
			}
			report.KeywordReindexed++
		}
	}

	if s.graphAvailable {
		nodes, err := s.graph.NodeIDs(ctx)
		if err != nil {
			return report, err
		}
		for _, id := range nodes {
			if _, ok := live[id]; ok {
				continue
			}
			if err := s.graph.DeleteNode(ctx, id); err != nil {
				return report, fmt.Errorf("repair orphan %s: %w", id, err)
			}
			report.OrphansRemoved++
		}
	}
	if s.keyword != nil {
		indexed, err := s.keyword.IDs(ctx)
		if err != nil {
			return report, err
		}
		for _, id := range indexed {
			if _, ok := live[id]; ok {
				continue
			}
			if err := s.keyword.Delete(ctx, id); err != nil {
				return report, fmt.Errorf("repair keyword orphan %s: %w", id, err)
			}
		}
	}
	s.logger.Info("repair finished",
		zap.Int("documents", report.Documents),
		zap.Int("nodes_mirrored", report.NodesMirrored),
		zap.Int("orphans_removed", report.OrphansRemoved))
	return report, nil
}
