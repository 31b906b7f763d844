package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/canonical/site-indexer/internal/transform"
)

// PageStore reads and rewrites pages by their id below the crawl root.
// *storage.FSStorage is the production implementation.
type PageStore interface {
	ReadPage(ctx context.Context, id string) ([]byte, error)
	RewritePage(ctx context.Context, id string, content []byte) error
}

// Augmenter injects the search box into crawled pages in place.
type Augmenter struct {
	Storage   PageStore // rooted at the crawl root
	Searchbox string    // asset name at the crawl root
	Logger    *slog.Logger
}

func NewAugmenter(store PageStore, searchbox string, logger *slog.Logger) *Augmenter {
	return &Augmenter{Storage: store, Searchbox: searchbox, Logger: logger}
}

// Augment adds the search-box block to the page at path unless it is
// already there. Pages without a closing body tag are not written at all:
// the content would be identical, and under watch mode the write would
// trigger another rebuild.
// Read and write failures are returned as *AugmentError.
func (a *Augmenter) Augment(ctx context.Context, root CrawlRoot, path string) (transform.InjectResult, error) {
	id, err := RelativeID(root, path)
	if err != nil {
		return 0, &AugmentError{Err: err}
	}

	page, err := a.Storage.ReadPage(ctx, id)
	if err != nil {
		return 0, &AugmentError{Err: fmt.Errorf("%s: %w", id, err)}
	}

	if transform.HasSearchbox(page) {
		a.log("tags already added", "path", id)
		return transform.AlreadyAugmented, nil
	}

	depth, err := DepthBelow(root, path)
	if err != nil {
		return 0, &AugmentError{Err: err}
	}
	ref := SearchboxRef(a.Searchbox, depth)

	a.log("applying tags", "path", id, "ref", ref)
	updated, res := transform.InjectSearchbox(page, ref)
	if res == transform.NoBodyTag {
		if a.Logger != nil {
			a.Logger.Warn("no closing body tag", "path", id)
		}
		return res, nil
	}

	if err := a.Storage.RewritePage(ctx, id, updated); err != nil {
		return 0, &AugmentError{Err: fmt.Errorf("%s: %w", id, err)}
	}
	a.log("applied tags", "path", id)
	return res, nil
}

func (a *Augmenter) log(msg string, args ...any) {
	if a.Logger != nil {
		a.Logger.Info(msg, args...)
	}
}
