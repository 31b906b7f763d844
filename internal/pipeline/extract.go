package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/canonical/site-indexer/internal/text"
)

// Extraction is what the parser reports for one page.
type Extraction struct {
	Title  string
	Tokens []string
}

// Extractor reads a page from disk and returns its title and body terms.
// Pages are decoded as UTF-8.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses the page at path. Failures are returned as
// *ExtractionError. The title is returned exactly as the parser reports it.
func (e *Extractor) Extract(path string) (Extraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, &ExtractionError{Err: fmt.Errorf("open %s: %w", path, err)}
	}

	title, plain, err := ParseHTML(string(raw))
	if err != nil {
		return Extraction{}, &ExtractionError{Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return Extraction{Title: title, Tokens: text.Terms(plain)}, nil
}

// ParseHTML extracts the title and plain body text from raw markup.
func ParseHTML(raw string) (title string, plain string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", "", err
	}
	return doc.Find("title").First().Text(), PlainText(doc), nil
}

// skippedElements never contribute indexable text.
var skippedElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
}

// blockElements break words apart, like they do when a page is rendered.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Caption: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Td: true, atom.Th: true,
	atom.Tr: true, atom.Ul: true, atom.Option: true,
}

// PlainText returns the visible body text of doc. Block-level elements are
// separated by whitespace; inline elements are not.
func PlainText(doc *goquery.Document) string {
	var b strings.Builder
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	for _, n := range body.Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}
