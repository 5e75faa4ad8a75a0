// Package config loads the YAML configuration for the vesa wiki server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Search    SearchConfig    `yaml:"search"`
	Graph     GraphConfig     `yaml:"graph"`
	Import    ImportConfig    `yaml:"import"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and the keyword index.
// An empty KeywordIndexPath keeps the keyword index in memory.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	ModelPath   string `yaml:"model_path"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`
}

// VectorConfig holds similarity index settings.
type VectorConfig struct {
	Metric   string `yaml:"metric"`
	UseIndex *bool  `yaml:"use_index"`
}

// UseIndexOrDefault reports whether nearest-neighbour queries use the in-memory index.
func (v *VectorConfig) UseIndexOrDefault() bool {
	if v.UseIndex != nil {
		return *v.UseIndex
	}
	return true
}

// SearchConfig holds search limits and hybrid score weights.
type SearchConfig struct {
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	KeywordEnabled *bool   `yaml:"keyword_enabled"`
}

// KeywordEnabledOrDefault defaults to true when unset.
func (s *SearchConfig) KeywordEnabledOrDefault() bool {
	if s.KeywordEnabled != nil {
		return *s.KeywordEnabled
	}
	return true
}

// GraphConfig toggles the graph overlay.
type GraphConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// EnabledOrDefault defaults to true when unset.
func (g *GraphConfig) EnabledOrDefault() bool {
	if g.Enabled != nil {
		return *g.Enabled
	}
	return true
}

// ImportConfig holds file import and directory watch settings.
type ImportConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	Watch       bool     `yaml:"watch"`
}

// RecursiveOrDefault defaults to true when unset.
func (i *ImportConfig) RecursiveOrDefault() bool {
	if i.Recursive != nil {
		return *i.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies environment overrides
// and defaults, and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	cfg.expandPaths(filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config built from defaults and environment overrides only.
// Relative paths are resolved against the working directory.
func Default() (*Config, error) {
	var cfg Config
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg.expandPaths(wd)
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides values from the environment. VESA_DB_PATH wins over the
// older COZO_DB_PATH name; HOST and PORT set the listen address.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("COZO_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := getenv("VESA_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func (cfg *Config) expandPaths(base string) {
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, base)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, base)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, base)
	for i := range cfg.Import.Directories {
		cfg.Import.Directories[i] = expandPath(cfg.Import.Directories[i], base)
	}
}

// expandPath makes path absolute. "~/" is the home directory, paths starting with
// "./" are relative to base, and other relative paths are relative to the home directory.
// ":memory:" and "" are returned unchanged.
func expandPath(path string, base string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(base, path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return filepath.Join(home, path)
}
