package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/canonical/site-indexer/internal/config"
	"github.com/canonical/site-indexer/internal/logging"
	"github.com/canonical/site-indexer/internal/pipeline"
	"github.com/canonical/site-indexer/internal/search"
	"github.com/canonical/site-indexer/internal/sitemap"
	"github.com/canonical/site-indexer/internal/watch"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config JSON (optional)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	dir := flag.String("dir", "", "Site directory to crawl (overrides start_dir)")
	output := flag.String("output", "", "Index artifact to write (overrides output)")
	site := flag.String("site", "", "Public site URL; enables sitemap.xml generation")
	indexDB := flag.String("index-db", "", "Optional SQLite database mirroring the index")
	extensions := flag.String("extensions", "", "Comma-separated page extensions (default html,htm)")
	failuresLog := flag.String("failures-log", "", "Append per-page failures to this file")
	watchMode := flag.Bool("watch", false, "Rebuild whenever pages change")
	flag.Parse()

	logger := logging.BuildLoggerTo(os.Stderr, *logLevel, *logFormat)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	applyFlags(cfg, *dir, *output, *site, *indexDB, *extensions, *failuresLog)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Usage: siteindexer -dir <site> -output <index.js>\n\n")
		flag.PrintDefaults()
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, *watchMode); err != nil {
		logger.Error("siteindexer failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func applyFlags(cfg *config.Config, dir, output, site, indexDB, extensions, failuresLog string) {
	if dir != "" {
		cfg.StartDir = dir
	}
	if output != "" {
		cfg.Output = output
	}
	if site != "" {
		cfg.Site = site
	}
	if indexDB != "" {
		cfg.IndexDB = indexDB
	}
	if extensions != "" {
		cfg.Extensions = config.NormalizeExtensions(strings.Split(extensions, ","))
	}
	if failuresLog != "" {
		cfg.FailuresLog = failuresLog
	}
}

func newBuilder(logger *slog.Logger, cfg *config.Config) *pipeline.Builder {
	builder := &pipeline.Builder{
		Extractor:    pipeline.NewExtractor(),
		Searchbox:    cfg.SearchboxFile,
		Extensions:   cfg.Extensions,
		Logger:       logger,
		FailuresPath: cfg.FailuresLog,
	}
	if cfg.IndexDB != "" {
		builder.OpenIndexer = func() (search.Indexer, error) {
			return search.NewSQLiteIndexer(cfg.IndexDB)
		}
	}
	if cfg.Site != "" {
		builder.SitemapGenerator = &sitemap.SitemapGenerator{
			SiteURL: cfg.SiteURL(),
			Logger:  logger,
		}
	}
	return builder
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, watchMode bool) error {
	builder := newBuilder(logger, cfg)

	build := func(ctx context.Context) error {
		status, err := builder.Build(ctx, cfg.StartDir, cfg.Output)
		if err != nil {
			return err
		}
		if status.Errors > 0 && status.FailuresPath != "" {
			logger.Warn("see failures log", "path", status.FailuresPath)
		}
		return nil
	}

	if err := build(ctx); err != nil {
		return err
	}
	if !watchMode {
		return nil
	}

	root, err := filepath.Abs(cfg.StartDir)
	if err != nil {
		return fmt.Errorf("resolve start dir: %w", err)
	}
	w := &watch.Watcher{
		Root:       root,
		Extensions: cfg.Extensions,
		Ignore:     []string{cfg.SearchboxFile, filepath.Base(cfg.Output)},
		Logger:     logger,
	}
	return w.Run(ctx, build)
}
