package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteCatalog implements the Catalog interface using SQLite
type SQLiteCatalog struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLite opens (or creates) the catalog database at dbPath and applies
// pending migrations.
func NewSQLite(dbPath string) (*SQLiteCatalog, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

// Close closes the database connection
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// UpsertDocument inserts a document record or replaces the existing row for
// the same filename. Re-ingesting a document resets its counters and
// timestamps; dependent image rows cascade on the replaced row.
func (c *SQLiteCatalog) UpsertDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (filename, path, content_hash, size_bytes, page_count, chunk_count, image_count, ingested_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			path = excluded.path,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			page_count = excluded.page_count,
			chunk_count = excluded.chunk_count,
			image_count = excluded.image_count,
			ingested_at = excluded.ingested_at,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = now
	}
	_, err := c.db.ExecContext(ctx, query,
		doc.Filename, doc.Path, doc.ContentHash[:], doc.SizeBytes,
		doc.PageCount, doc.ChunkCount, doc.ImageCount,
		doc.IngestedAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	// Recover the rowid whether the statement inserted or updated
	err = c.db.QueryRowContext(ctx, "SELECT id, created_at FROM documents WHERE filename = ?", doc.Filename).
		Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to read back document: %w", err)
	}
	doc.UpdatedAt = now
	return nil
}

// GetDocument returns the document with the given filename.
func (c *SQLiteCatalog) GetDocument(ctx context.Context, filename string) (*Document, error) {
	query := `
		SELECT id, filename, path, content_hash, size_bytes, page_count, chunk_count, image_count,
		       ingested_at, created_at, updated_at
		FROM documents
		WHERE filename = ?
	`
	doc, err := scanDocument(c.db.QueryRowContext(ctx, query, filename))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents ordered by filename.
func (c *SQLiteCatalog) ListDocuments(ctx context.Context) ([]*Document, error) {
	query := `
		SELECT id, filename, path, content_hash, size_bytes, page_count, chunk_count, image_count,
		       ingested_at, created_at, updated_at
		FROM documents
		ORDER BY filename
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and, via cascade, its image rows.
func (c *SQLiteCatalog) DeleteDocument(ctx context.Context, filename string) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM documents WHERE filename = ?", filename)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordImage inserts an extracted-image record, replacing any previous row
// with the same image identity.
func (c *SQLiteCatalog) RecordImage(ctx context.Context, img *Image) error {
	query := `
		INSERT INTO images (document_id, image_id, page_number, image_index, image_path, caption, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(image_id) DO UPDATE SET
			document_id = excluded.document_id,
			page_number = excluded.page_number,
			image_index = excluded.image_index,
			image_path = excluded.image_path,
			caption = excluded.caption,
			width = excluded.width,
			height = excluded.height
	`
	now := time.Now()
	_, err := c.db.ExecContext(ctx, query,
		img.DocumentID, img.ImageID, img.PageNumber, img.ImageIndex,
		img.ImagePath, img.Caption, img.Width, img.Height, now)
	if err != nil {
		return fmt.Errorf("failed to record image: %w", err)
	}

	err = c.db.QueryRowContext(ctx, "SELECT id, created_at FROM images WHERE image_id = ?", img.ImageID).
		Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to read back image: %w", err)
	}
	return nil
}

// ListImagesByDocument returns a document's images in page then index order.
func (c *SQLiteCatalog) ListImagesByDocument(ctx context.Context, documentID int64) ([]*Image, error) {
	query := `
		SELECT id, document_id, image_id, page_number, image_index, image_path, caption, width, height, created_at
		FROM images
		WHERE document_id = ?
		ORDER BY page_number, image_index
	`
	rows, err := c.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var images []*Image
	for rows.Next() {
		var img Image
		err := rows.Scan(&img.ID, &img.DocumentID, &img.ImageID, &img.PageNumber,
			&img.ImageIndex, &img.ImagePath, &img.Caption, &img.Width, &img.Height, &img.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, &img)
	}
	return images, rows.Err()
}

// Stats aggregates counts across documents and images.
func (c *SQLiteCatalog) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats

	query := `SELECT COUNT(*), COALESCE(SUM(chunk_count), 0) FROM documents`
	err := c.db.QueryRowContext(ctx, query).Scan(&stats.DocumentsCount, &stats.ChunksCount)
	if err != nil {
		return nil, fmt.Errorf("failed to read document stats: %w", err)
	}

	var lastIngested sql.NullTime
	err = c.db.QueryRowContext(ctx, "SELECT ingested_at FROM documents ORDER BY ingested_at DESC LIMIT 1").Scan(&lastIngested)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read last ingestion time: %w", err)
	}
	if lastIngested.Valid {
		stats.LastIngestedAt = lastIngested.Time
	}

	err = c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&stats.ImagesCount)
	if err != nil {
		return nil, fmt.Errorf("failed to read image stats: %w", err)
	}

	return &stats, nil
}

// Reset deletes every document and image record. The schema survives.
func (c *SQLiteCatalog) Reset(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM images"); err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var hash []byte
	var ingestedAt sql.NullTime

	err := row.Scan(&doc.ID, &doc.Filename, &doc.Path, &hash, &doc.SizeBytes,
		&doc.PageCount, &doc.ChunkCount, &doc.ImageCount,
		&ingestedAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	copy(doc.ContentHash[:], hash)
	if ingestedAt.Valid {
		doc.IngestedAt = ingestedAt.Time
	}
	return &doc, nil
}
