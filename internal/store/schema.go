package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/vector"
)

// Relation names.
const (
	DocumentRelation       = "document"
	RelationshipRelation   = "relationship"
	VectorDocumentRelation = "vector_document"

	indexCatalog = "relation_index"
)

// FieldType is the primitive type of a relation field.
type FieldType int

const (
	String FieldType = iota
	JSON
	Vector
)

// Field is one column of a relation.
type Field struct {
	Name string
	Type FieldType
}

// IndexSpec declares a similarity index over a vector field.
type IndexSpec struct {
	Field      string
	Dimensions int
	Metric     vector.Metric
}

// Relation is a named table with a fixed field schema. Key names the unique
// field; a relation without a key accepts duplicate rows.
type Relation struct {
	Name    string
	Key     string
	Fields  []Field
	Lookups []string
	Index   *IndexSpec
}

// Record is one row to upsert, keyed by field name.
type Record map[string]any

// DefaultRelations returns the wiki relations: graph nodes, typed edges and
// embedded documents with a similarity index of the given shape.
func DefaultRelations(dimensions int, metric vector.Metric) []Relation {
	return []Relation{
		{
			Name: DocumentRelation,
			Key:  "id",
			Fields: []Field{
				{"id", String}, {"title", String}, {"content", String},
				{"created_at", String}, {"updated_at", String}, {"metadata", JSON},
			},
		},
		{
			Name: RelationshipRelation,
			Fields: []Field{
				{"source_id", String}, {"target_id", String}, {"rel_type", String},
				{"properties", JSON}, {"created_at", String}, {"updated_at", String},
			},
			Lookups: []string{"source_id", "target_id"},
		},
		{
			Name: VectorDocumentRelation,
			Key:  "id",
			Fields: []Field{
				{"id", String}, {"content", String}, {"embedding", Vector},
				{"metadata", JSON}, {"created_at", String}, {"updated_at", String},
			},
			Lookups: []string{"updated_at"},
			Index:   &IndexSpec{Field: "embedding", Dimensions: dimensions, Metric: metric},
		},
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (r *Relation) createScript() string {
	var cols []string
	for _, f := range r.Fields {
		col := quoteIdent(f.Name)
		switch f.Type {
		case String:
			col += " TEXT NOT NULL DEFAULT ''"
		case JSON:
			col += " TEXT NOT NULL DEFAULT '{}'"
		case Vector:
			col += " BLOB NOT NULL"
		}
		if f.Name == r.Key {
			col += " PRIMARY KEY"
		}
		cols = append(cols, col)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n\t%s\n);\n", quoteIdent(r.Name), strings.Join(cols, ",\n\t"))
	for _, l := range r.Lookups {
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s(%s);\n",
			quoteIdent("idx_"+r.Name+"_"+l), quoteIdent(r.Name), quoteIdent(l))
	}
	return b.String()
}

func (r *Relation) field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// encode turns rec into column values in field order. The vector of an indexed
// relation is returned separately so the caller can keep the index in sync.
func (r *Relation) encode(op string, rec Record) (args []any, vec []float32, err error) {
	for name := range rec {
		if _, ok := r.field(name); !ok {
			return nil, nil, NewError(op, KindInvalid, "unknown field %q in relation %s", name, r.Name)
		}
	}
	if r.Key != "" {
		if key, _ := rec[r.Key].(string); key == "" {
			return nil, nil, NewError(op, KindInvalid, "relation %s requires a non-empty %s", r.Name, r.Key)
		}
	}
	args = make([]any, 0, len(r.Fields))
	for _, f := range r.Fields {
		v := rec[f.Name]
		switch f.Type {
		case String:
			args = append(args, AsString(normalizeValue(v)))
		case JSON:
			if v == nil {
				args = append(args, "{}")
				continue
			}
			b, err := json.Marshal(normalizeValue(v))
			if err != nil {
				return nil, nil, &Error{Op: op, Kind: KindSerialization, Err: fmt.Errorf("field %s: %w", f.Name, err)}
			}
			args = append(args, string(b))
		case Vector:
			fv, ok := v.([]float32)
			if !ok || len(fv) == 0 {
				return nil, nil, NewError(op, KindInvalid, "field %s requires a non-empty []float32", f.Name)
			}
			if r.Index != nil && r.Index.Field == f.Name && len(fv) != r.Index.Dimensions {
				return nil, nil, NewError(op, KindInvalid, "embedding dimension mismatch: got %d, expected %d", len(fv), r.Index.Dimensions)
			}
			vec = fv
			args = append(args, vector.Encode(fv))
		}
	}
	return args, vec, nil
}

// EnsureSchemas makes sure every registered relation exists. A relation is
// created when force is set or when the catalog does not list it; force drops
// the relation first. Relations with an IndexSpec also get their similarity
// index declared, and a missing declaration on an existing relation is added.
func (d *DB) EnsureSchemas(ctx context.Context, force bool) error {
	const op = "ensure schemas"
	if err := d.checkOpen(op); err != nil {
		return err
	}
	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+indexCatalog+` (
		relation TEXT PRIMARY KEY,
		field TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		metric TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		return wrapError(op, err)
	}

	existing := make(map[string]bool)
	names, err := d.catalog(ctx)
	if err != nil {
		d.logger.Warn("relation catalog check failed, treating relations as absent", zap.Error(err))
	}
	for _, n := range names {
		existing[n] = true
	}

	for _, name := range d.order {
		rel := d.relations[name]
		if force || !existing[name] {
			if err := d.createRelation(ctx, rel, force); err != nil {
				return err
			}
			d.logger.Info("created relation", zap.String("relation", name), zap.Bool("force", force))
			if rel.Index != nil {
				if err := d.declareIndex(ctx, rel); err != nil {
					return err
				}
			}
			continue
		}
		if rel.Index != nil {
			declared, err := d.indexDeclared(ctx, rel)
			if err != nil {
				return err
			}
			if !declared {
				if err := d.declareIndex(ctx, rel); err != nil {
					return err
				}
			}
		}
	}
	return d.warmIndexes(ctx)
}

// Relations lists the relation names in the store catalog.
func (d *DB) Relations(ctx context.Context) ([]string, error) {
	res, err := d.Run(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) > 0 {
			names = append(names, AsString(row[0]))
		}
	}
	return names, nil
}

func (d *DB) createRelation(ctx context.Context, rel *Relation, force bool) error {
	op := "create relation " + rel.Name
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError(op, err)
	}
	defer func() { _ = tx.Rollback() }()
	if force {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(rel.Name)); err != nil {
			return wrapError(op, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+indexCatalog+" WHERE relation = ?", rel.Name); err != nil {
			return wrapError(op, err)
		}
	}
	if _, err := tx.ExecContext(ctx, rel.createScript()); err != nil {
		return wrapError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return wrapError(op, err)
	}
	if rel.Index != nil {
		d.mu.Lock()
		if idx := d.indexes[rel.Name]; idx != nil {
			idx.Reset()
		}
		d.mu.Unlock()
	}
	return nil
}

func (d *DB) declareIndex(ctx context.Context, rel *Relation) error {
	op := "create index " + rel.Name
	spec := rel.Index
	if spec.Dimensions <= 0 {
		return NewError(op, KindInvalid, "index dimensions must be positive")
	}
	if _, err := vector.ParseMetric(string(spec.Metric)); err != nil {
		return &Error{Op: op, Kind: KindInvalid, Err: err}
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+indexCatalog+` (relation, field, dimensions, metric, created_at) VALUES (?, ?, ?, ?, ?)`,
		rel.Name, spec.Field, spec.Dimensions, string(spec.Metric), Timestamp(d.now()),
	)
	if err != nil {
		return wrapError(op, err)
	}
	d.logger.Info("declared similarity index",
		zap.String("relation", rel.Name),
		zap.Int("dimensions", spec.Dimensions),
		zap.String("metric", string(spec.Metric)))
	return nil
}

func (d *DB) indexDeclared(ctx context.Context, rel *Relation) (bool, error) {
	op := "check index " + rel.Name
	res, err := d.Run(ctx, `SELECT dimensions, metric FROM `+indexCatalog+` WHERE relation = ?`, rel.Name)
	if err != nil {
		return false, err
	}
	if len(res.Rows) == 0 {
		return false, nil
	}
	dims := int(AsInt64(res.Rows[0][0]))
	metric := AsString(res.Rows[0][1])
	if dims != rel.Index.Dimensions || metric != string(rel.Index.Metric) {
		return false, NewError(op, KindInvalid,
			"relation %s is indexed as %d/%s but %d/%s is configured; recreate the schema to change it",
			rel.Name, dims, metric, rel.Index.Dimensions, rel.Index.Metric)
	}
	return true, nil
}

// warmIndexes loads every stored vector into the in-memory indexes.
func (d *DB) warmIndexes(ctx context.Context) error {
	if !d.useIndex {
		return nil
	}
	for _, name := range d.order {
		rel := d.relations[name]
		if rel.Index == nil {
			continue
		}
		idx, err := vector.NewMemoryIndex(rel.Index.Dimensions, rel.Index.Metric)
		if err != nil {
			return &Error{Op: "warm index " + name, Kind: KindInvalid, Err: err}
		}
		err = d.scanVectors(ctx, rel, func(key string, vec []float32) error {
			return idx.Add(ctx, []string{key}, [][]float32{vec})
		})
		if err != nil {
			return wrapError("warm index "+name, err)
		}
		d.mu.Lock()
		d.indexes[name] = idx
		d.mu.Unlock()
		d.logger.Debug("loaded similarity index", zap.String("relation", name), zap.Int("vectors", idx.Size()))
	}
	return nil
}
