package pipeline

import (
	"errors"

	"github.com/canonical/site-indexer/internal/text"
)

// Document is one crawled page. It only lives for the duration of a crawl
// step; the artifact keeps its serialized projection.
type Document struct {
	Path   string // absolute file path
	ID     string // path relative to the crawl root, "/" separated
	Title  string
	Tokens []string
}

// Entry returns the serialized index form of d.
func (d Document) Entry() IndexEntry {
	return IndexEntry{ID: d.ID, Text: text.Join(d.Tokens), Title: d.Title}
}

// TitleRecord returns the id→title pair appended to the titles object.
func (d Document) TitleRecord() TitleRecord {
	return TitleRecord{ID: d.ID, Title: d.Title}
}

type IndexEntry struct {
	ID    string
	Text  string
	Title string
}

type TitleRecord struct {
	ID    string
	Title string
}

// Status summarizes a single build.
type Status struct {
	Total            int
	Indexed          int
	Augmented        int
	AlreadyAugmented int
	NoBodyTag        int
	Errors           int
	IDs              []string // ids written to the artifact, in crawl order
	FailuresPath     string
}

// ExtractionError wraps a parse failure for one page so callers can treat
// it as non-fatal.
type ExtractionError struct{ Err error }

func (e *ExtractionError) Error() string { return e.Err.Error() }
func (e *ExtractionError) Unwrap() error { return e.Err }

// AugmentError wraps a read or write failure while injecting the search box.
type AugmentError struct{ Err error }

func (e *AugmentError) Error() string { return e.Err.Error() }
func (e *AugmentError) Unwrap() error { return e.Err }

// ErrArtifact marks failures creating or writing the index artifact. These
// abort the build.
var ErrArtifact = errors.New("index artifact")
