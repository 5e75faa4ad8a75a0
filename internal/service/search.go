package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/keyword"
	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/store"
	"github.com/hyperjump/vesa/internal/vectordb"
)

// candidateFactor widens each retriever's result set before fusion.
const candidateFactor = 2

type fused struct {
	id            string
	score         float64
	semanticScore float64
	keywordScore  float64
}

// Search runs a semantic search, fused with keyword relevance when a keyword
// index is configured and matches the query. Without keyword matches each
// result's Score is 1 - distance. At most q.Limit results are returned.
func (s *Service) Search(ctx context.Context, q models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := q.Validate(s.search.DefaultLimit, s.search.MaxLimit); err != nil {
		return nil, store.NewError("search", store.KindInvalid, "%v", err)
	}
	resp, err := s.runSearch(ctx, q)
	if err != nil {
		return nil, err
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

func (s *Service) runSearch(ctx context.Context, q models.SearchQuery) (*models.SearchResponse, error) {
	if s.keyword == nil {
		hits, err := s.vectors.Search(ctx, q.Query, q.Limit)
		if err != nil {
			return nil, err
		}
		return s.semanticResponse(q, hits), nil
	}

	candidates := q.Limit * candidateFactor
	hits, err := s.vectors.Search(ctx, q.Query, candidates)
	if err != nil {
		return nil, err
	}
	kwHits, err := s.keyword.Search(ctx, q.Query, candidates)
	if err != nil {
		s.logger.Warn("keyword search failed, using semantic results only", zap.Error(err))
		kwHits = nil
	}
	if len(kwHits) == 0 {
		if len(hits) > q.Limit {
			hits = hits[:q.Limit]
		}
		return s.semanticResponse(q, hits), nil
	}

	records := make(map[string]*vectordb.Record, len(hits))
	semantic := make(map[string]float64, len(hits))
	for _, h := range hits {
		records[h.ID] = &h.Record
		semantic[h.ID] = semanticScore(h)
	}
	ranked := fuse(normalizeKeywordScores(kwHits), semantic, s.search.KeywordWeight, s.search.SemanticWeight)

	results := make([]*models.SearchResult, 0, q.Limit)
	for _, r := range ranked {
		if len(results) == q.Limit {
			break
		}
		var doc *models.Document
		if rec, ok := records[r.id]; ok {
			doc = s.fromRecord(rec)
		} else {
			doc, err = s.Get(ctx, r.id)
			if isNotFound(err) {
				s.logger.Debug("keyword hit without document", zap.String("id", r.id))
				continue
			}
			if err != nil {
				return nil, err
			}
		}
		results = append(results, &models.SearchResult{
			Document:      doc,
			Score:         r.score,
			SemanticScore: r.semanticScore,
			KeywordScore:  r.keywordScore,
			Rank:          len(results) + 1,
		})
	}
	return &models.SearchResponse{Query: q.Query, Results: results, Total: len(results)}, nil
}

// semanticResponse ranks hits by similarity alone; Score is 1 - distance.
func (s *Service) semanticResponse(q models.SearchQuery, hits []*vectordb.Hit) *models.SearchResponse {
	results := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		score := semanticScore(h)
		results = append(results, &models.SearchResult{
			Document:      s.fromRecord(&h.Record),
			Score:         score,
			SemanticScore: score,
			Rank:          len(results) + 1,
		})
	}
	return &models.SearchResponse{Query: q.Query, Results: results, Total: len(results)}
}

// semanticScore is 1 - distance. A hit with a zero Score carries no distance
// and scores 1.
func semanticScore(h *vectordb.Hit) float64 {
	if h.Score == 0 {
		return 1
	}
	return 1 - h.Distance
}

// normalizeKeywordScores scales keyword scores into [0,1] by the maximum.
func normalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	var maxScore float64
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			out[r.ID] = r.Score / maxScore
		} else {
			out[r.ID] = 0
		}
	}
	return out
}

// fuse merges keyword and semantic scores with weights, best first.
// Ties are ordered by ID.
func fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*fused {
	byID := make(map[string]*fused, len(keywordScores)+len(semanticScores))
	for id, score := range keywordScores {
		byID[id] = &fused{id: id, keywordScore: score}
	}
	for id, score := range semanticScores {
		if f, ok := byID[id]; ok {
			f.semanticScore = score
		} else {
			byID[id] = &fused{id: id, semanticScore: score}
		}
	}
	out := make([]*fused, 0, len(byID))
	for _, f := range byID {
		f.score = keywordWeight*f.keywordScore + semanticWeight*f.semanticScore
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	return out
}
