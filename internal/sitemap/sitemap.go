package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/canonical/site-indexer/internal/storage"
)

const (
	maxSitemapURLs = 50000
	sitemapXMLNS   = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name          `xml:"sitemapindex"`
	XMLNS    string            `xml:"xmlns,attr"`
	Sitemaps []sitemapIndexRef `xml:"sitemap"`
}

type sitemapIndexRef struct {
	XMLName xml.Name `xml:"sitemap"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

// SitemapGenerator writes sitemap XML for the pages of a crawled site.
type SitemapGenerator struct {
	Root    string // crawl root; sitemaps are written here
	SiteURL string // e.g. "https://docs.example.org"
	Logger  *slog.Logger
	MaxURLs int // per sitemap file; 0 means the protocol limit
}

// Generate writes {Root}/sitemap.xml listing every page id. When there are
// more ids than one sitemap may hold, numbered sitemaps are written and
// sitemap.xml becomes a sitemap index referencing them.
func (g *SitemapGenerator) Generate(ctx context.Context, ids []string) error {
	if g.SiteURL == "" {
		return fmt.Errorf("sitemap site URL is required")
	}

	urls := make([]sitemapURL, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		var lastmod string
		if info, err := os.Stat(filepath.Join(g.Root, filepath.FromSlash(id))); err == nil {
			lastmod = info.ModTime().UTC().Format("2006-01-02")
		} else if g.Logger != nil {
			g.Logger.Warn("sitemap stat failed", "path", id, "error", err)
		}

		urls = append(urls, sitemapURL{
			Loc:     g.SiteURL + "/" + escapePath(id),
			LastMod: lastmod,
		})
	}

	chunks := splitURLs(urls, g.maxURLs())
	if len(chunks) == 1 {
		return g.writeSitemap(ctx, "sitemap.xml", chunks[0])
	}

	now := time.Now().UTC().Format("2006-01-02")
	var refs []sitemapIndexRef
	for i, chunk := range chunks {
		filename := fmt.Sprintf("sitemap-%d.xml", i+1)
		if err := g.writeSitemap(ctx, filename, chunk); err != nil {
			return err
		}
		refs = append(refs, sitemapIndexRef{
			Loc:     g.SiteURL + "/" + filename,
			LastMod: now,
		})
	}

	idx := sitemapIndex{
		XMLNS:    sitemapXMLNS,
		Sitemaps: refs,
	}
	return g.writeXML(ctx, "sitemap.xml", idx)
}

func (g *SitemapGenerator) maxURLs() int {
	if g.MaxURLs <= 0 || g.MaxURLs > maxSitemapURLs {
		return maxSitemapURLs
	}
	return g.MaxURLs
}

// escapePath percent-encodes each segment of a "/" separated id.
func escapePath(id string) string {
	segments := strings.Split(id, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func (g *SitemapGenerator) writeSitemap(ctx context.Context, name string, urls []sitemapURL) error {
	urlset := sitemapURLSet{
		XMLNS: sitemapXMLNS,
		URLs:  urls,
	}
	return g.writeXML(ctx, name, urlset)
}

func (g *SitemapGenerator) writeXML(ctx context.Context, name string, v any) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return storage.NewFSStorage(g.Root).WriteFile(ctx, name, buf.Bytes())
}

func splitURLs(urls []sitemapURL, maxPerFile int) [][]sitemapURL {
	if len(urls) <= maxPerFile {
		return [][]sitemapURL{urls}
	}
	var chunks [][]sitemapURL
	for i := 0; i < len(urls); i += maxPerFile {
		end := i + maxPerFile
		if end > len(urls) {
			end = len(urls)
		}
		chunks = append(chunks, urls[i:end])
	}
	return chunks
}
