// Package store is the embedded relational and vector store behind the wiki.
// It wraps SQLite with named relations, a relation catalog, upserts, ad-hoc
// parameterized queries and nearest-neighbour search over vector fields.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/vector"
)

// DB is a SQLite database with a registry of relations.
type DB struct {
	db        *sql.DB
	path      string
	logger    *zap.Logger
	relations map[string]*Relation
	order     []string
	useIndex  bool
	now       func() time.Time
	catalog   func(context.Context) ([]string, error)

	writeMu sync.Mutex // serializes writes to indexed relations with index updates
	mu      sync.RWMutex
	indexes map[string]*vector.MemoryIndex
	closed  bool
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *DB) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRelations registers relations managed by EnsureSchemas and Put.
func WithRelations(rels ...Relation) Option {
	return func(d *DB) {
		for i := range rels {
			r := rels[i]
			if _, ok := d.relations[r.Name]; !ok {
				d.order = append(d.order, r.Name)
			}
			d.relations[r.Name] = &r
		}
	}
}

// WithVectorIndex toggles the in-memory similarity index. When disabled,
// Nearest scans every stored vector.
func WithVectorIndex(enabled bool) Option {
	return func(d *DB) { d.useIndex = enabled }
}

// QueryResult holds the rows returned by Run.
type QueryResult struct {
	Headers []string
	Rows    [][]any
}

// Statement is one parameterized statement for Batch.
type Statement struct {
	Query string
	Args  []any
}

// Neighbor is one nearest-neighbour hit.
type Neighbor struct {
	Key      string
	Distance float64
}

// Open opens or creates the database at path. Parent directories are created.
// EnsureSchemas must be called before relations are used.
func Open(path string, opts ...Option) (*DB, error) {
	d := &DB{
		path:      path,
		logger:    zap.NewNop(),
		relations: make(map[string]*Relation),
		indexes:   make(map[string]*vector.MemoryIndex),
		useIndex:  true,
		now:       time.Now,
	}
	d.catalog = d.Relations
	for _, opt := range opts {
		opt(d)
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, &Error{Op: "open", Kind: KindStoreUnavailable, Err: fmt.Errorf("create database directory: %w", err)}
			}
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, &Error{Op: "open", Kind: KindStoreUnavailable, Err: err}
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, &Error{Op: "open", Kind: KindStoreUnavailable, Err: fmt.Errorf("enable WAL: %w", err)}
	}
	d.db = db
	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Relation returns a registered relation by name.
func (d *DB) Relation(name string) (*Relation, bool) {
	r, ok := d.relations[name]
	return r, ok
}

// Close releases the database.
func (d *DB) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return d.db.Close()
}

func (d *DB) checkOpen(op string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return NewError(op, KindStoreUnavailable, "database is closed")
	}
	return nil
}

// Ping runs a trivial query to prove the store answers.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.checkOpen("ping"); err != nil {
		return err
	}
	var one int
	if err := d.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return wrapError("ping", err)
	}
	return nil
}

// Run executes a parameterized read query and collects every row.
func (d *DB) Run(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	if err := d.checkOpen("run"); err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError("run", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapError("run", err)
	}
	res := &QueryResult{Headers: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapError("run", err)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("run", err)
	}
	return res, nil
}

// Execute runs a parameterized write and returns the number of affected rows.
// It does not maintain similarity indexes; use Put and Delete for indexed relations.
func (d *DB) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	if err := d.checkOpen("execute"); err != nil {
		return 0, err
	}
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapError("execute", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Batch runs statements in one transaction.
func (d *DB) Batch(ctx context.Context, stmts ...Statement) error {
	if err := d.checkOpen("batch"); err != nil {
		return err
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("batch", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.Query, s.Args...); err != nil {
			return wrapError("batch", err)
		}
	}
	return wrapError("batch", tx.Commit())
}

// Put upserts rec into relation. Rows with the same key are replaced; relations
// without a key always gain a row.
func (d *DB) Put(ctx context.Context, relation string, rec Record) error {
	op := "put " + relation
	if err := d.checkOpen(op); err != nil {
		return err
	}
	rel, ok := d.relations[relation]
	if !ok {
		return NewError(op, KindInvalid, "unknown relation %q", relation)
	}
	args, vec, err := rel.encode(op, rec)
	if err != nil {
		return err
	}
	cols := make([]string, len(rel.Fields))
	marks := make([]string, len(rel.Fields))
	for i, f := range rel.Fields {
		cols[i] = quoteIdent(f.Name)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quoteIdent(rel.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return wrapError(op, err)
	}
	if idx := d.index(relation); idx != nil && vec != nil {
		key := rec[rel.Key].(string)
		if err := idx.Add(ctx, []string{key}, [][]float32{vec}); err != nil {
			d.logger.Warn("similarity index update failed", zap.String("relation", relation), zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Delete removes the row with the given key and reports whether one existed.
func (d *DB) Delete(ctx context.Context, relation, key string) (bool, error) {
	op := "delete " + relation
	if err := d.checkOpen(op); err != nil {
		return false, err
	}
	rel, ok := d.relations[relation]
	if !ok {
		return false, NewError(op, KindInvalid, "unknown relation %q", relation)
	}
	if rel.Key == "" {
		return false, NewError(op, KindInvalid, "relation %s has no key", relation)
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	res, err := d.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(rel.Name), quoteIdent(rel.Key)), key)
	if err != nil {
		return false, wrapError(op, err)
	}
	if idx := d.index(relation); idx != nil {
		if err := idx.Remove(ctx, []string{key}); err != nil {
			d.logger.Warn("similarity index update failed", zap.String("relation", relation), zap.String("key", key), zap.Error(err))
		}
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Count returns the number of rows in relation.
func (d *DB) Count(ctx context.Context, relation string) (int64, error) {
	rel, ok := d.relations[relation]
	if !ok {
		return 0, NewError("count", KindInvalid, "unknown relation %q", relation)
	}
	res, err := d.Run(ctx, "SELECT COUNT(*) FROM "+quoteIdent(rel.Name))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return AsInt64(res.Rows[0][0]), nil
}

// Nearest returns up to k keys of relation closest to query by the relation's
// index metric. Without a loaded index every stored vector is scanned.
func (d *DB) Nearest(ctx context.Context, relation string, query []float32, k int) ([]Neighbor, error) {
	op := "nearest " + relation
	if err := d.checkOpen(op); err != nil {
		return nil, err
	}
	rel, ok := d.relations[relation]
	if !ok || rel.Index == nil {
		return nil, NewError(op, KindInvalid, "relation %q has no similarity index", relation)
	}
	if len(query) != rel.Index.Dimensions {
		return nil, NewError(op, KindInvalid, "query dimension mismatch: got %d, expected %d", len(query), rel.Index.Dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	var results []*vector.Result
	if idx := d.index(relation); idx != nil {
		var err error
		results, err = idx.Search(ctx, query, k)
		if err != nil {
			return nil, &Error{Op: op, Kind: KindInvalid, Err: err}
		}
	} else {
		err := d.scanVectors(ctx, rel, func(key string, vec []float32) error {
			results = append(results, &vector.Result{ID: key, Distance: vector.Distance(rel.Index.Metric, query, vec)})
			return nil
		})
		if err != nil {
			return nil, wrapError(op, err)
		}
		results = vector.TopK(results, k)
	}

	out := make([]Neighbor, len(results))
	for i, r := range results {
		out[i] = Neighbor{Key: r.ID, Distance: r.Distance}
	}
	return out, nil
}

func (d *DB) index(relation string) *vector.MemoryIndex {
	if !d.useIndex {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.indexes[relation]
}

func (d *DB) scanVectors(ctx context.Context, rel *Relation, fn func(key string, vec []float32) error) error {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("SELECT %s, %s FROM %s",
		quoteIdent(rel.Key), quoteIdent(rel.Index.Field), quoteIdent(rel.Name)))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var blob []byte
		if err := rows.Scan(&key, &blob); err != nil {
			return err
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			d.logger.Warn("skipping undecodable embedding", zap.String("relation", rel.Name), zap.String("key", key), zap.Error(err))
			continue
		}
		if len(vec) != rel.Index.Dimensions {
			d.logger.Warn("skipping embedding with wrong dimension", zap.String("relation", rel.Name), zap.String("key", key), zap.Int("dimensions", len(vec)))
			continue
		}
		if err := fn(key, vec); err != nil {
			return err
		}
	}
	return rows.Err()
}
