package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path does not live under the crawl root.
var ErrOutsideRoot = errors.New("path is outside the crawl root")

// CrawlRoot is the absolute crawl directory including a trailing separator.
// It is resolved once per run and passed to every relative-path computation.
type CrawlRoot string

// NewCrawlRoot resolves dir to an absolute path with a trailing separator.
func NewCrawlRoot(dir string) (CrawlRoot, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve crawl root %s: %w", dir, err)
	}
	if !strings.HasSuffix(abs, string(os.PathSeparator)) {
		abs += string(os.PathSeparator)
	}
	return CrawlRoot(abs), nil
}

// Dir returns the root without its trailing separator.
func (r CrawlRoot) Dir() string {
	if len(r) > 1 {
		return strings.TrimSuffix(string(r), string(os.PathSeparator))
	}
	return string(r)
}

// RelativeID strips root from filePath and normalizes separators to "/".
func RelativeID(root CrawlRoot, filePath string) (string, error) {
	rel, ok := strings.CutPrefix(filePath, string(root))
	if !ok || root == "" {
		return "", fmt.Errorf("%s: %w", filePath, ErrOutsideRoot)
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/"), nil
}

// DepthBelow returns the number of directories between root and filePath:
// 0 for a file directly under root, 1 for one level down and so on.
func DepthBelow(root CrawlRoot, filePath string) (int, error) {
	rel, err := RelativeID(root, filePath)
	if err != nil {
		return 0, err
	}
	return strings.Count(rel, "/"), nil
}

// PrefixRepeat returns prefix repeated times times, followed by base.
func PrefixRepeat(base, prefix string, times int) string {
	if times <= 0 {
		return base
	}
	return strings.Repeat(prefix, times) + base
}

// SearchboxRef is the link from a page at the given depth to the search-box
// asset at the crawl root.
func SearchboxRef(asset string, depth int) string {
	return PrefixRepeat(asset, "../", depth)
}
