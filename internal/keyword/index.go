// Package keyword provides a Bleve full-text index over wiki documents.
package keyword

import (
	"context"

	"github.com/hyperjump/vesa/internal/models"
)

// Index is a full-text index of documents keyed by document ID.
type Index interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	IDs(ctx context.Context) ([]string, error)
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword hit with Bleve's relevance score.
type Result struct {
	ID    string
	Score float64
}
