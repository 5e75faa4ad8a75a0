package service

import (
	"strings"
	"time"

	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/store"
	"github.com/hyperjump/vesa/pkg/utils"
)

// storedMetadata is the JSON shape persisted alongside a document.
func storedMetadata(doc *models.Document) map[string]any {
	tags := doc.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	meta := map[string]any{
		"title":      doc.Title,
		"author":     doc.Metadata.Author,
		"tags":       tags,
		"created_at": store.Timestamp(doc.Metadata.CreatedAt),
		"updated_at": store.Timestamp(doc.Metadata.UpdatedAt),
	}
	if doc.Metadata.Path != "" {
		meta["path"] = doc.Metadata.Path
	}
	return meta
}

// applyMetadata overwrites the fields of m present in input.
func applyMetadata(m *models.DocumentMetadata, input map[string]any) {
	if v, ok := input["author"]; ok {
		m.Author = store.AsString(v)
	}
	if v, ok := input["tags"]; ok {
		m.Tags = toTags(v)
	}
	if v, ok := input["path"]; ok {
		m.Path = store.AsString(v)
	}
	if v, ok := input["created_at"]; ok {
		if t, ok := toTime(v); ok {
			m.CreatedAt = t
		}
	}
}

// parseMetadata fills m from stored metadata and returns the stored title.
// Unparseable timestamps become now.
func parseMetadata(m *models.DocumentMetadata, stored map[string]any, now func() time.Time) string {
	m.Author = store.AsString(stored["author"])
	m.Path = store.AsString(stored["path"])
	m.Tags = toTags(stored["tags"])
	var ok bool
	if m.CreatedAt, ok = toTime(stored["created_at"]); !ok {
		m.CreatedAt = now().UTC()
	}
	if m.UpdatedAt, ok = toTime(stored["updated_at"]); !ok {
		m.UpdatedAt = now().UTC()
	}
	return store.AsString(stored["title"])
}

func toTags(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(store.AsString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return utils.SplitList(t)
	default:
		return []string{}
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), !t.IsZero()
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
