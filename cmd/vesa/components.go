package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/config"
	"github.com/hyperjump/vesa/internal/embedding"
	"github.com/hyperjump/vesa/internal/graphdb"
	"github.com/hyperjump/vesa/internal/importer"
	"github.com/hyperjump/vesa/internal/keyword"
	"github.com/hyperjump/vesa/internal/service"
	"github.com/hyperjump/vesa/internal/store"
	"github.com/hyperjump/vesa/internal/vector"
	"github.com/hyperjump/vesa/internal/vectordb"
)

// Components holds initialized services.
type Components struct {
	DB           *store.DB
	Embedder     embedding.Embedder
	KeywordIndex keyword.Index
	Service      *service.Service
	Importer     *importer.Importer
}

// Close releases everything that holds a file or a native session.
func (c *Components) Close() {
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

// openStore opens the database and ensures every relation exists. With force,
// all relations are dropped and recreated.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, force bool) (*store.DB, error) {
	metric, err := vector.ParseMetric(cfg.Vector.Metric)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.Storage.DatabasePath,
		store.WithLogger(logger),
		store.WithRelations(store.DefaultRelations(cfg.Embedding.Dimensions, metric)...),
		store.WithVectorIndex(cfg.Vector.UseIndexOrDefault()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.EnsureSchemas(ctx, force); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure schemas: %w", err)
	}
	return db, nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	db, err := openStore(ctx, cfg, logger, false)
	if err != nil {
		return nil, err
	}
	c.DB = db

	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	svcOpts := []service.Option{
		service.WithLogger(logger),
		service.WithSearchConfig(cfg.Search),
		service.WithGraphEnabled(cfg.Graph.EnabledOrDefault()),
		service.WithDiskPaths(cfg.Storage.DatabasePath, cfg.Storage.KeywordIndexPath),
	}
	if cfg.Search.KeywordEnabledOrDefault() {
		idx, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		c.KeywordIndex = idx
		svcOpts = append(svcOpts, service.WithKeywordIndex(idx))
	}

	vectors := vectordb.New(db, embedder, vectordb.WithLogger(logger))
	graph := graphdb.New(db, graphdb.WithLogger(logger))
	c.Service = service.New(vectors, graph, svcOpts...)
	c.Importer = importer.New(c.Service,
		importer.WithLogger(logger),
		importer.WithExtensions(cfg.Import.Extensions...),
	)

	logger.Info("components initialized",
		zap.String("database", cfg.Storage.DatabasePath),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Int("dimensions", embedder.Dimensions()),
		zap.Bool("keyword_index", c.KeywordIndex != nil),
		zap.Bool("graph_available", c.Service.GraphAvailable()),
	)
	return c, nil
}
