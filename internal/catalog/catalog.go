package catalog

import (
	"context"
	"time"
)

// Catalog persists ingestion bookkeeping: which documents have been indexed,
// their extracted images, and aggregate statistics. Vector data lives in the
// index, not here.
type Catalog interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, filename string) (*Document, error)
	ListDocuments(ctx context.Context) ([]*Document, error)
	DeleteDocument(ctx context.Context, filename string) error

	// Image operations
	RecordImage(ctx context.Context, img *Image) error
	ListImagesByDocument(ctx context.Context, documentID int64) ([]*Image, error)

	// Aggregates and maintenance
	Stats(ctx context.Context) (*Stats, error)
	Reset(ctx context.Context) error

	Close() error
}

// Document represents one ingested source file.
type Document struct {
	ID          int64
	Filename    string // Base name, unique
	Path        string // Absolute path at ingestion time
	ContentHash [32]byte
	SizeBytes   int64
	PageCount   int
	ChunkCount  int
	ImageCount  int
	IngestedAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image represents one raster image extracted from a document.
type Image struct {
	ID         int64
	DocumentID int64
	ImageID    string // Stable identity key, unique
	PageNumber int
	ImageIndex int
	ImagePath  string
	Caption    string
	Width      int
	Height     int
	CreatedAt  time.Time
}

// Stats aggregates catalog contents.
type Stats struct {
	DocumentsCount int
	ChunksCount    int
	ImagesCount    int
	LastIngestedAt time.Time
}
