package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/canonical/site-indexer/internal/search"
	"github.com/canonical/site-indexer/internal/sitemap"
	"github.com/canonical/site-indexer/internal/storage"
	"github.com/canonical/site-indexer/internal/transform"
)

// DocumentExtractor parses one page into its title and body terms.
type DocumentExtractor interface {
	Extract(path string) (Extraction, error)
}

// PageAugmenter adds the search box to one page below root.
type PageAugmenter interface {
	Augment(ctx context.Context, root CrawlRoot, path string) (transform.InjectResult, error)
}

// Builder crawls a site, writes the index artifact and augments every page
// with the search box. Pages are processed one at a time in crawl order.
type Builder struct {
	Extractor  DocumentExtractor
	Searchbox  string   // reserved asset name, never indexed
	Extensions []string // page extensions, without dots

	// Augmenter defaults to an *Augmenter over the crawl root.
	Augmenter PageAugmenter

	// OpenIndexer, when set, opens a store that mirrors every index entry.
	// It is called once per build.
	OpenIndexer      func() (search.Indexer, error)
	SitemapGenerator *sitemap.SitemapGenerator
	Logger           *slog.Logger
	FailuresPath     string

	status Status
}

// Build indexes every page below startDir into the artifact at outputPath.
// Only failures to resolve the root, list the tree or write the artifact are
// returned; per-page failures are logged and counted in the status.
func (b *Builder) Build(ctx context.Context, startDir, outputPath string) (Status, error) {
	if b.Extractor == nil || b.Searchbox == "" {
		return Status{}, errors.New("index builder missing dependencies")
	}
	b.status = Status{FailuresPath: b.FailuresPath}
	b.startFailuresLog()

	root, err := NewCrawlRoot(startDir)
	if err != nil {
		return b.status, err
	}
	output, err := filepath.Abs(outputPath)
	if err != nil {
		return b.status, fmt.Errorf("resolve output %s: %w", outputPath, err)
	}

	store := storage.NewFSStorage(root.Dir())
	f, err := store.Create(output)
	if err != nil {
		return b.status, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	defer func() { _ = f.Close() }()

	artifact := NewArtifactWriter(f)
	if err := artifact.WriteHeader(); err != nil {
		return b.status, err
	}
	b.info("index artifact initialized", "path", output)

	indexer := b.openIndexer()

	b.info("crawling folder", "path", root.Dir())
	files, err := FindFiles(root.Dir(), b.Extensions, true)
	if err != nil {
		b.closeIndexer(indexer)
		return b.status, fmt.Errorf("crawl %s: %w", root.Dir(), err)
	}

	augmenter := b.Augmenter
	if augmenter == nil {
		augmenter = NewAugmenter(store, b.Searchbox, b.Logger)
	}
	for _, path := range files {
		if strings.EqualFold(filepath.Base(path), b.Searchbox) || path == output {
			continue
		}
		b.status.Total++
		b.info("found file", "path", path)

		if err := b.indexDocument(ctx, root, path, artifact, indexer); err != nil {
			b.closeIndexer(indexer)
			return b.status, err
		}
		b.augmentDocument(ctx, augmenter, root, path)
	}

	if err := artifact.Flush(); err != nil {
		b.closeIndexer(indexer)
		return b.status, err
	}
	if err := f.Close(); err != nil {
		b.closeIndexer(indexer)
		return b.status, fmt.Errorf("%w: close: %w", ErrArtifact, err)
	}
	b.info("done with folder", "path", root.Dir())

	b.closeIndexer(indexer)

	if b.SitemapGenerator != nil {
		gen := *b.SitemapGenerator
		gen.Root = root.Dir()
		if err := gen.Generate(ctx, b.status.IDs); err != nil {
			// Non-fatal: the index is already complete.
			b.recordFailure("sitemap", root.Dir(), err)
		}
	}

	if b.status.Errors > 0 && b.Logger != nil {
		b.Logger.Warn("index built with failures", "count", b.status.Errors)
	}
	b.info("index built",
		"documents", b.status.Indexed,
		"files", b.status.Total,
		"augmented", b.status.Augmented,
		"already_augmented", b.status.AlreadyAugmented,
		"errors", b.status.Errors,
		"output", output,
	)
	return b.status, nil
}

// indexDocument extracts one page and appends its entry to the artifact.
// Extraction failures are recorded and skipped; only artifact write
// failures are returned.
func (b *Builder) indexDocument(ctx context.Context, root CrawlRoot, path string, artifact *ArtifactWriter, indexer search.Indexer) error {
	id, err := RelativeID(root, path)
	if err != nil {
		b.recordFailure("extract", path, err)
		return nil
	}
	b.info("indexing", "path", id)

	extraction, err := b.Extractor.Extract(path)
	if err != nil {
		var ee *ExtractionError
		if errors.As(err, &ee) {
			err = ee.Unwrap()
		}
		b.recordFailure("extract", id, err)
		return nil
	}

	doc := Document{Path: path, ID: id, Title: extraction.Title, Tokens: extraction.Tokens}
	entry := doc.Entry()
	if err := artifact.WriteDocument(entry, doc.TitleRecord()); err != nil {
		return err
	}
	b.status.Indexed++
	b.status.IDs = append(b.status.IDs, id)

	if indexer != nil {
		if err := indexer.IndexDocument(ctx, search.Document{ID: entry.ID, Title: entry.Title, Text: entry.Text}); err != nil {
			b.recordFailure("index", id, err)
		}
	}
	b.info("done indexing", "path", id)
	return nil
}

func (b *Builder) augmentDocument(ctx context.Context, augmenter PageAugmenter, root CrawlRoot, path string) {
	res, err := augmenter.Augment(ctx, root, path)
	if err != nil {
		var ae *AugmentError
		if errors.As(err, &ae) {
			err = ae.Unwrap()
		}
		b.recordFailure("augment", path, err)
		return
	}
	switch res {
	case transform.Injected:
		b.status.Augmented++
	case transform.AlreadyAugmented:
		b.status.AlreadyAugmented++
	case transform.NoBodyTag:
		b.status.NoBodyTag++
	}
}

func (b *Builder) openIndexer() search.Indexer {
	if b.OpenIndexer == nil {
		return nil
	}
	indexer, err := b.OpenIndexer()
	if err != nil {
		b.recordFailure("index", "", err)
		return nil
	}
	return indexer
}

func (b *Builder) closeIndexer(indexer search.Indexer) {
	if indexer == nil {
		return
	}
	if err := indexer.Close(); err != nil {
		b.recordFailure("index", "", fmt.Errorf("close indexer: %w", err))
	}
}

// startFailuresLog truncates the failure log so it can be tailed while the
// build runs.
func (b *Builder) startFailuresLog() {
	if b.FailuresPath == "" {
		return
	}
	_ = os.MkdirAll(filepath.Dir(b.FailuresPath), 0o755)
	_ = os.WriteFile(b.FailuresPath, nil, 0o644)
}

func (b *Builder) recordFailure(stage string, path string, err error) {
	message := strings.TrimSpace(fmt.Sprintf("%s %s: %v", stage, path, err))
	b.status.Errors++

	// Append to the failure log immediately so users can tail it.
	if b.FailuresPath != "" {
		f, ferr := os.OpenFile(b.FailuresPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if ferr == nil {
			_, _ = fmt.Fprintln(f, message)
			_ = f.Close()
		}
	}

	if b.Logger != nil {
		b.Logger.Warn("pipeline failure", "stage", stage, "path", path, "error", err)
	}
}

func (b *Builder) info(msg string, args ...any) {
	if b.Logger != nil {
		b.Logger.Info(msg, args...)
	}
}
