// Package cli formats command output for the vesa binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/vesa/internal/importer"
	"github.com/hyperjump/vesa/internal/markdown"
	"github.com/hyperjump/vesa/internal/models"
)

// Format selects text or JSON output.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
)

// ParseFormat accepts "text" and "json"; anything else is an error.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes a search response.
func WriteSearchResults(w io.Writer, resp *models.SearchResponse, format Format) error {
	if format == JSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "%d results for %q in %dms\n", resp.Total, resp.Query, resp.QueryTime)
	for _, r := range resp.Results {
		fmt.Fprintf(w, "\n%d. %s  [%s]\n", r.Rank, r.Document.Title, r.Document.ID)
		fmt.Fprintf(w, "   score %.4f (semantic %.4f, keyword %.4f)\n", r.Score, r.SemanticScore, r.KeywordScore)
		if p := markdown.Preview(r.Document.Content, 160); p != "" {
			fmt.Fprintf(w, "   %s\n", p)
		}
	}
	return nil
}

// WriteStatus writes store status.
func WriteStatus(w io.Writer, st *models.Status, format Format) error {
	if format == JSON {
		return writeJSON(w, st)
	}
	graph := "unavailable"
	if st.GraphAvailable {
		graph = fmt.Sprintf("%d nodes, %d relationships", st.GraphNodes, st.GraphRelationships)
	}
	fmt.Fprintf(w, "documents:        %d\n", st.Documents)
	fmt.Fprintf(w, "graph:            %s\n", graph)
	fmt.Fprintf(w, "keyword index:    %d documents\n", st.KeywordDocuments)
	fmt.Fprintf(w, "mirror failures:  %d\n", st.GraphMirrorFailures)
	fmt.Fprintf(w, "embedding dims:   %d\n", st.EmbeddingDimensions)
	fmt.Fprintf(w, "disk usage:       %s\n", HumanBytes(st.DiskUsageBytes))
	return nil
}

// WriteRepairReport writes what a repair rebuilt.
func WriteRepairReport(w io.Writer, r *models.RepairReport, format Format) error {
	if format == JSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "repaired %d documents: %d graph nodes mirrored, %d orphans removed, %d keyword entries rebuilt\n",
		r.Documents, r.NodesMirrored, r.OrphansRemoved, r.KeywordReindexed)
	return nil
}

// WriteImportSummary writes the outcome of an import.
func WriteImportSummary(w io.Writer, path string, s *importer.Summary, format Format) error {
	if format == JSON {
		return writeJSON(w, struct {
			Path string `json:"path"`
			*importer.Summary
		}{path, s})
	}
	fmt.Fprintf(w, "%s: %d created, %d updated, %d unchanged, %d failed\n",
		path, s.Created, s.Updated, s.Unchanged, s.Failed)
	return nil
}

// HumanBytes formats n with a binary unit suffix.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
