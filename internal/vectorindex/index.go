package vectorindex

import (
	"context"
	"errors"
)

// Common errors
var (
	// ErrUnavailable indicates the index service is unreachable or errored.
	// Callers recover it as an empty result set rather than failing the
	// whole request.
	ErrUnavailable = errors.New("vector index unavailable")

	ErrBadRequest = errors.New("vector index rejected request")
)

// Point is a vector with its payload, the unit of storage in a collection.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// Hit is a scored nearest-neighbor result.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
}

// CollectionInfo reports collection status and size.
type CollectionInfo struct {
	PointsCount int64
	Status      string
}

// Index is the vector index boundary: cosine similarity over fixed-dimension
// vectors with payload storage. Implementations must bound every call with a
// timeout; a slow or hung index surfaces ErrUnavailable instead of hanging
// the answer pipeline.
type Index interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Upsert stores points, overwriting by ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to limit hits scoring at or above threshold,
	// ordered by descending similarity.
	Search(ctx context.Context, collection string, vector []float32, limit int, threshold float64) ([]Hit, error)

	// Info reports point count and status for a collection.
	Info(ctx context.Context, collection string) (*CollectionInfo, error)

	// Drop deletes a collection and all of its points.
	Drop(ctx context.Context, collection string) error
}
