package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/monokrome/astrogonia/internal/builder"
	"github.com/monokrome/astrogonia/internal/config"
	"github.com/monokrome/astrogonia/internal/logging"
	"github.com/monokrome/astrogonia/internal/pipeline"
	"github.com/monokrome/astrogonia/internal/render"
	"github.com/monokrome/astrogonia/internal/search"
	"github.com/monokrome/astrogonia/internal/sitemap"
	"github.com/monokrome/astrogonia/internal/storage"
	"github.com/monokrome/astrogonia/internal/transform"
	"github.com/monokrome/astrogonia/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config YAML")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	addr := flag.String("addr", ":1313", "HTTP bind address for serve")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := logging.BuildLogger(level)

	switch args[0] {
	case "build":
		if err := runBuild(context.Background(), cfg, logger, modeFromConfig(cfg)); err != nil {
			logger.Error("build failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(cfg, logger, *addr); err != nil {
			logger.Error("serve failed", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: astrogonia [flags] <command>

Commands:
  build    Render the site into the output directory
  serve    Build, then serve with live reload on file changes

Flags:
`)
	flag.PrintDefaults()
}

func modeFromConfig(cfg *config.Config) transform.Mode {
	if cfg.RenderMode == "hydrate" {
		return transform.ModeHydrate
	}
	return transform.ModeStatic
}

// runBuild renders markdown content into the output directory, then
// runs the directive transform pass over the emitted pages, indexing
// them for search and regenerating the sitemap.
func runBuild(ctx context.Context, cfg *config.Config, logger *slog.Logger, mode transform.Mode) error {
	registry := render.DefaultRegistry()
	if cfg.Directives != "" {
		if manifest, ok := render.LoadManifest(cfg.Directives); ok {
			manifest.Apply(registry)
		}
	}

	b, err := builder.New(cfg, registry.Names(), logger)
	if err != nil {
		return err
	}
	pages, err := b.Build()
	if err != nil {
		return err
	}
	logger.Info("content built", "pages", pages)

	indexer, err := search.NewSQLiteIndexer(cfg.IndexPath())
	if err != nil {
		return err
	}

	runner := &pipeline.Runner{
		Storage:   storage.NewFSStorage(cfg.OutputDir),
		Indexer:   indexer,
		Engine:    render.NewEngine(),
		Registry:  registry,
		Templates: &transform.Resolver{Root: cfg.TemplateDir},
		Scope:     render.Scope(cfg.DefaultScope()),
		Mode:      mode,
		Sitemap: &sitemap.Generator{
			Root:    cfg.OutputDir,
			SiteURL: cfg.SiteURL,
			Logger:  logger,
		},
		Logger:       logger,
		FailuresPath: filepath.Join(cfg.OutputDir, ".astrogonia", "failures.log"),
	}
	if err := runner.Run(ctx); err != nil {
		return err
	}

	s := runner.Status()
	logger.Info("transform pass done",
		"pages", s.Total, "unchanged", s.Unchanged, "errors", s.Errors)
	return nil
}

func runServe(cfg *config.Config, logger *slog.Logger, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The dev middleware renders at response time, so the on-disk pages
	// keep their directive attributes between rebuilds.
	rebuild := func(ctx context.Context) error {
		return runBuild(ctx, cfg, logger, transform.ModeHydrate)
	}
	if err := rebuild(ctx); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	server := web.NewServer(cfg, logger, rebuild)
	return server.ListenAndServe(ctx, addr)
}
