// Package importer turns files on disk into wiki documents.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/extract"
	"github.com/hyperjump/vesa/internal/fileid"
	"github.com/hyperjump/vesa/internal/markdown"
	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/store"
)

// Documents is the part of the document service the importer writes to.
type Documents interface {
	Get(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, input *models.DocumentInput) (*models.Document, error)
	Update(ctx context.Context, id string, input *models.DocumentInput) (*models.Document, error)
	Delete(ctx context.Context, id string) error
}

// Outcome is what ImportFile did with a file.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Summary counts the outcomes of a directory import.
type Summary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Importer imports files into Documents.
type Importer struct {
	docs       Documents
	extensions []string
	logger     *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// WithExtensions restricts imports to the given extensions. Extensions the
// extract package cannot read are ignored; an empty list keeps the default.
func WithExtensions(exts ...string) Option {
	return func(im *Importer) {
		if len(exts) == 0 {
			return
		}
		im.extensions = nil
		for _, e := range exts {
			e = strings.ToLower(e)
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if extract.Supported(e) {
				im.extensions = append(im.extensions, e)
			}
		}
	}
}

// New returns an Importer writing to docs.
func New(docs Documents, opts ...Option) *Importer {
	im := &Importer{docs: docs, extensions: extract.Extensions(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Extensions returns the extensions this importer accepts.
func (im *Importer) Extensions() []string {
	return append([]string(nil), im.extensions...)
}

// Accepts reports whether path has an accepted extension.
func (im *Importer) Accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range im.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ImportFile creates or updates the document for path. A file whose title and
// content match the stored document is left alone.
func (im *Importer) ImportFile(ctx context.Context, path string) (Outcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Unchanged, fmt.Errorf("absolute path: %w", err)
	}
	if !im.Accepts(abs) {
		return Unchanged, fmt.Errorf("unsupported file type %q", filepath.Ext(abs))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Unchanged, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Unchanged, fmt.Errorf("not a regular file: %s", abs)
	}
	content, err := extract.File(abs)
	if err != nil {
		return Unchanged, fmt.Errorf("extract %s: %w", abs, err)
	}

	id := fileid.DocID(abs)
	input := &models.DocumentInput{
		ID:      id,
		Title:   Title(abs, content),
		Content: content,
		Metadata: map[string]any{
			"tags": tagsOrEmpty(markdown.ExtractTags(content)),
			"path": abs,
		},
	}
	existing, err := im.docs.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if _, err := im.docs.Create(ctx, input); err != nil {
			return Unchanged, err
		}
		im.logger.Debug("imported file", zap.String("path", abs), zap.String("id", id))
		return Created, nil
	case err != nil:
		return Unchanged, err
	}
	if existing.Title == input.Title && existing.Content == input.Content {
		return Unchanged, nil
	}
	if _, err := im.docs.Update(ctx, id, input); err != nil {
		return Unchanged, err
	}
	im.logger.Debug("updated imported file", zap.String("path", abs), zap.String("id", id))
	return Updated, nil
}

// RemoveFile deletes the document imported from path, if any.
func (im *Importer) RemoveFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	err = im.docs.Delete(ctx, fileid.DocID(abs))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// ImportDirectory imports every accepted file under root. Failures of single
// files are logged and counted; only walk errors and cancellation abort.
func (im *Importer) ImportDirectory(ctx context.Context, root string, recursive bool) (*Summary, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	sum := &Summary{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !im.Accepts(path) {
			return nil
		}
		outcome, err := im.ImportFile(ctx, path)
		if err != nil {
			sum.Failed++
			im.logger.Warn("import failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		switch outcome {
		case Created:
			sum.Created++
		case Updated:
			sum.Updated++
		default:
			sum.Unchanged++
		}
		return nil
	})
	if err != nil {
		return sum, err
	}
	im.logger.Info("directory imported",
		zap.String("root", root),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("failed", sum.Failed))
	return sum, nil
}

// Title returns the first level-one heading of content, or the file name
// without its extension.
func Title(path, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if t := strings.TrimSpace(line[2:]); t != "" {
				return t
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
