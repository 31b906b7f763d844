package search

import (
	"context"
	"database/sql"
	"fmt"
)

const batchSize = 500

// SQLiteIndexer mirrors index entries into an SQLite database with an FTS5
// table over title and text. Entries arrive one at a time in crawl order
// and are committed in batches; it is not safe for concurrent use.
type SQLiteIndexer struct {
	db      *sql.DB
	insert  *sql.Stmt
	batch   *sql.Tx
	pending int
}

func NewSQLiteIndexer(path string) (*SQLiteIndexer, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	insert, err := db.Prepare(`INSERT INTO documents (id, title, text) VALUES (?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &SQLiteIndexer{db: db, insert: insert}, nil
}

// IndexDocument appends doc to the current batch. Duplicate ids are kept,
// like they are in the index artifact.
func (s *SQLiteIndexer) IndexDocument(ctx context.Context, doc Document) error {
	if s.batch == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}
		s.batch = tx
	}

	if _, err := s.batch.StmtContext(ctx, s.insert).ExecContext(ctx, doc.ID, doc.Title, doc.Text); err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	s.pending++
	if s.pending < batchSize {
		return nil
	}
	return s.commit()
}

func (s *SQLiteIndexer) commit() error {
	if s.batch == nil {
		return nil
	}
	tx := s.batch
	s.batch, s.pending = nil, 0
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Close commits the open batch and closes the database.
func (s *SQLiteIndexer) Close() error {
	if err := s.commit(); err != nil {
		_ = s.db.Close()
		return err
	}
	_ = s.insert.Close()
	return s.db.Close()
}
