package search

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestIndexer(t *testing.T) (*SQLiteIndexer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "index.db")
	idx, err := NewSQLiteIndexer(path)
	if err != nil {
		t.Fatalf("NewSQLiteIndexer: %v", err)
	}
	return idx, path
}

func queryIDs(t *testing.T, path, match string) []string {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query(`SELECT d.id FROM documents_fts f JOIN documents d ON d.seq = f.rowid
		WHERE documents_fts MATCH ? ORDER BY d.seq`, match)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return ids
}

func TestSQLiteIndexerMirrorsDocuments(t *testing.T) {
	idx, path := openTestIndexer(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "index.html", Title: "Home", Text: "Hello World"},
		{ID: "sub/page.htm", Title: "Deep", Text: "Deep page"},
	}
	for _, d := range docs {
		if err := idx.IndexDocument(ctx, d); err != nil {
			t.Fatalf("IndexDocument: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if ids := queryIDs(t, path, "hello"); len(ids) != 1 || ids[0] != "index.html" {
		t.Fatalf("unexpected match for hello: %v", ids)
	}
	if ids := queryIDs(t, path, "deep"); len(ids) != 1 || ids[0] != "sub/page.htm" {
		t.Fatalf("unexpected match for deep: %v", ids)
	}
}

func TestSQLiteIndexerKeepsDuplicates(t *testing.T) {
	idx, path := openTestIndexer(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := idx.IndexDocument(ctx, Document{ID: "same.html", Title: "Same", Text: "again"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if ids := queryIDs(t, path, "again"); len(ids) != 2 {
		t.Fatalf("expected both entries, got %v", ids)
	}
}

func TestSQLiteIndexerRebuildsOnOpen(t *testing.T) {
	idx, path := openTestIndexer(t)
	ctx := context.Background()
	if err := idx.IndexDocument(ctx, Document{ID: "old.html", Title: "Old", Text: "stale"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err := NewSQLiteIndexer(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if ids := queryIDs(t, path, "stale"); len(ids) != 0 {
		t.Fatalf("expected empty mirror after reopen, got %v", ids)
	}
}

func TestSQLiteIndexerBatches(t *testing.T) {
	idx, path := openTestIndexer(t)
	ctx := context.Background()
	n := batchSize + 3
	for i := 0; i < n; i++ {
		doc := Document{ID: fmt.Sprintf("p%d.html", i), Title: "T", Text: "common"}
		if err := idx.IndexDocument(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if ids := queryIDs(t, path, "common"); len(ids) != n {
		t.Fatalf("expected %d documents, got %d", n, len(ids))
	}
}
