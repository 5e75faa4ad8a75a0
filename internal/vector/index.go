// Package vector provides distance metrics, embedding encoding and an in-memory
// nearest-neighbour index.
package vector

import (
	"context"
	"fmt"
	"strings"
)

// Metric is the distance function used to compare embeddings.
type Metric string

const (
	// Cosine distance is 1 - cosine similarity, in [0, 2].
	Cosine Metric = "cosine"
	// L2 is the Euclidean distance.
	L2 Metric = "l2"
)

// ParseMetric accepts "cosine" or "l2" (case-insensitive).
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case Cosine, L2:
		return m, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}

// Index stores vectors by ID and answers k-nearest queries.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Reset()
	Size() int
	Close() error
}

// Result is one nearest-neighbour hit. Smaller Distance is closer.
type Result struct {
	ID       string
	Distance float64
}
