package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/cli"
	"github.com/hyperjump/vesa/internal/config"
	"github.com/hyperjump/vesa/internal/models"
	"github.com/hyperjump/vesa/internal/server"
	"github.com/hyperjump/vesa/internal/watcher"
	"github.com/hyperjump/vesa/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/vesa/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// working directory wins if it exists, and a missing default file falls back to
// built-in defaults. Returns the config and the path that was loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "repair":
		runRepair()
	case "schema":
		runSchema()
	case "version", "--version", "-v":
		fmt.Printf("vesa version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds a logger; it exits on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func parseFormatOrExit(s string) cli.Format {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recursive := cfg.Import.RecursiveOrDefault()
	for _, dir := range cfg.Import.Directories {
		if _, err := os.Stat(dir); err != nil {
			logger.Warn("import directory skipped", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if _, err := components.Importer.ImportDirectory(ctx, dir, recursive); err != nil {
			logger.Warn("startup import failed", zap.String("dir", dir), zap.Error(err))
		}
	}

	var watch *watcher.Watcher
	if cfg.Import.Watch && len(cfg.Import.Directories) > 0 {
		watch = watcher.New(components.Importer, cfg.Import.Directories, recursive, watcher.WithLogger(logger))
		if err := watch.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watch.Stop()
	}

	srv, err := server.New(components.Service, cfg.Server, server.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	if watch != nil {
		watch.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	recursive := fs.Bool("recursive", true, "descend into subdirectories")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: vesa import [flags] <file-or-directory>...")
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	failed := false
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to stat %s: %v\n", path, err)
			failed = true
			continue
		}
		if !info.IsDir() {
			outcome, err := components.Importer.ImportFile(ctx, path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Import of %s failed: %v\n", path, err)
				failed = true
				continue
			}
			fmt.Printf("%s: %s\n", path, outcome)
			continue
		}
		summary, err := components.Importer.ImportDirectory(ctx, path, *recursive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import of %s failed: %v\n", path, err)
			failed = true
			continue
		}
		if err := cli.WriteImportSummary(os.Stdout, path, summary, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		if summary.Failed > 0 {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// buildSearchQuery joins positional arguments into one query string.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves flags that follow the query to the front so that
// flag parsing, which stops at the first positional argument, still sees them.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the store directly)")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: vesa search [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)
	q := models.SearchQuery{Query: query, Limit: *limit}

	var resp *models.SearchResponse
	if *serverURL != "" {
		var err error
		resp, err = newAPIClient(*serverURL).Search(context.Background(), q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		resp, err = components.Service.Search(ctx, q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormatOrExit(*outputFormat)

	var st *models.Status
	if *serverURL != "" {
		var err error
		st, err = newAPIClient(*serverURL).Status(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		st, err = components.Service.Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRepair() {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormatOrExit(*outputFormat)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	report, err := components.Service.Repair(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Repair failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRepairReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSchema() {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "drop and recreate every relation (deletes all data)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	db, err := openStore(context.Background(), cfg, logger, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Schema setup failed: %v\n", err)
		os.Exit(1)
	}
	_ = db.Close()
	if *force {
		fmt.Printf("Relations recreated in %s\n", cfg.Storage.DatabasePath)
		return
	}
	fmt.Printf("Relations ready in %s\n", cfg.Storage.DatabasePath)
}

func printUsage() {
	fmt.Println(`vesa - Personal wiki with semantic search and document relationships

Usage:
  vesa server [flags]                   Start the HTTP server and web pages
  vesa import [flags] <path>...         Import files or directories as documents
  vesa search [flags] <query>           Search documents
  vesa status [flags]                   Show store and index status
  vesa repair [flags]                   Rebuild graph and keyword projections
  vesa schema [-force]                  Create missing relations (-force recreates all)
  vesa version                          Show version
  vesa help                             Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/vesa/config.yaml,
                     ./config.yaml is preferred when present)

Server Flags:
  --debug            Enable debug logging

Import Flags:
  --recursive        Descend into subdirectories (default: true)
  --output string    Output format: text or json (default: text)

Search Flags:
  --server string    Server URL, e.g. http://127.0.0.1:8000. Empty opens the store directly.
  --limit int        Number of results (default from config)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL. Empty opens the store directly.
  --output string    Output format: text or json (default: text)

Examples:
  vesa server
  vesa import ~/notes
  vesa search "graph databases"
  vesa search "graph databases" --limit 5 --output json
  vesa search --server http://127.0.0.1:8000 "embeddings"
  vesa status
  vesa repair
  vesa schema -force`)
}
