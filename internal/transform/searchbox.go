// Package transform rewrites crawled pages in place.
package transform

import (
	"bytes"
	"strings"
)

const (
	// SearchboxMarker identifies a page that already carries the search box.
	SearchboxMarker = `id="searchbox"`

	// Signature follows the injected block so the origin of the markup is
	// visible in the page source.
	Signature = "<!-- Search box courtesy of Site Indexer -->"

	closingBody = "</body>"
)

// InjectResult reports what InjectSearchbox did to a page.
type InjectResult int

const (
	Injected InjectResult = iota
	AlreadyAugmented
	NoBodyTag
)

func (r InjectResult) String() string {
	switch r {
	case Injected:
		return "injected"
	case AlreadyAugmented:
		return "already augmented"
	case NoBodyTag:
		return "no closing body tag"
	default:
		return "unknown"
	}
}

// HasSearchbox reports whether page already contains the search-box marker.
func HasSearchbox(page []byte) bool {
	return bytes.Contains(page, []byte(SearchboxMarker))
}

// SearchboxBlock builds the markup inserted before </body>: a container
// holding an inline frame that loads ref, followed by the signature comment.
func SearchboxBlock(ref string) string {
	var b strings.Builder
	b.WriteString(`<div ` + SearchboxMarker + `>`)
	b.WriteString(`  <iframe id="searchbox-frame" src="`)
	b.WriteString(ref)
	b.WriteString(`" width="100%" style="border: 0" height="100%">`)
	b.WriteString(`  </iframe>`)
	b.WriteString(`</div>`)
	b.WriteString(Signature)
	return b.String()
}

// InjectSearchbox inserts the search-box block immediately before the first
// </body> of page. A page that already has the marker, or has no closing
// body tag, is returned unchanged.
func InjectSearchbox(page []byte, ref string) ([]byte, InjectResult) {
	if HasSearchbox(page) {
		return page, AlreadyAugmented
	}

	idx := bytes.Index(page, []byte(closingBody))
	if idx < 0 {
		return page, NoBodyTag
	}

	block := SearchboxBlock(ref)
	var b bytes.Buffer
	b.Grow(len(page) + len(block))
	b.Write(page[:idx])
	b.WriteString(block)
	b.Write(page[idx:])
	return b.Bytes(), Injected
}
