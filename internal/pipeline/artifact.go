package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// The artifact is a script consumed by the LADDERS client-side search
// library. Statements are CRLF terminated.
const (
	eol = "\r\n"

	headerIndex  = "var index = new LADDERS.search.index();"
	headerTitles = "var titles = new LADDERS.search.document();"
)

// ArtifactWriter serializes index entries and title records.
type ArtifactWriter struct {
	w   *bufio.Writer
	err error
}

func NewArtifactWriter(w io.Writer) *ArtifactWriter {
	return &ArtifactWriter{w: bufio.NewWriter(w)}
}

// WriteHeader declares the index and title objects.
func (a *ArtifactWriter) WriteHeader() error {
	a.line(headerIndex)
	a.line(headerTitles)
	return a.failed()
}

// WriteDocument appends one document block followed by its title record.
func (a *ArtifactWriter) WriteDocument(entry IndexEntry, rec TitleRecord) error {
	a.line("var d = new LADDERS.search.document();")
	a.line(`d.add("id", '` + escapeLiteral(entry.ID, '\'') + `');`)
	a.line(`d.add("text", "` + escapeLiteral(entry.Text, '"') + `");`)
	a.line(`d.add("title", '` + escapeLiteral(entry.Title, '\'') + `');`)
	a.line("index.addDocument(d);")
	a.line(`titles.add("` + escapeLiteral(rec.ID, '"') + `", "` + escapeLiteral(rec.Title, '"') + `");`)
	a.line("")
	return a.failed()
}

// Flush writes any buffered statements to the underlying writer.
func (a *ArtifactWriter) Flush() error {
	if a.err != nil {
		return a.failed()
	}
	if err := a.w.Flush(); err != nil {
		a.err = err
	}
	return a.failed()
}

func (a *ArtifactWriter) line(s string) {
	if a.err != nil {
		return
	}
	if _, err := a.w.WriteString(s + eol); err != nil {
		a.err = err
	}
}

func (a *ArtifactWriter) failed() error {
	if a.err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrArtifact, a.err)
}

// escapeLiteral makes s safe inside a script string delimited by quote.
func escapeLiteral(s string, quote byte) string {
	if !strings.ContainsAny(s, "\\\r\n\u2028\u2029"+string(quote)) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\u2028':
			b.WriteString(`\u2028`)
		case r == '\u2029':
			b.WriteString(`\u2029`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
