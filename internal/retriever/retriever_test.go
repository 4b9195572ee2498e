package retriever

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrag/docrag-mcp/internal/embedder"
	"github.com/docrag/docrag-mcp/internal/vectorindex"
	"github.com/docrag/docrag-mcp/pkg/types"
)

// fakeIndex implements vectorindex.Index with a programmable search function
// and records every search call.
type fakeIndex struct {
	mu       sync.Mutex
	searchFn func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error)
	calls    []searchCall
}

type searchCall struct {
	collection string
	limit      int
	threshold  float64
}

func (f *fakeIndex) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float64) ([]vectorindex.Hit, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{collection, limit, threshold})
	f.mu.Unlock()
	if f.searchFn != nil {
		return f.searchFn(collection, limit, threshold)
	}
	return nil, nil
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	return nil
}

func (f *fakeIndex) Info(ctx context.Context, collection string) (*vectorindex.CollectionInfo, error) {
	return &vectorindex.CollectionInfo{PointsCount: 1, Status: "green"}, nil
}

func (f *fakeIndex) Drop(ctx context.Context, collection string) error {
	return nil
}

func (f *fakeIndex) textCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.collection == "text" {
			n++
		}
	}
	return n
}

func (f *fakeIndex) imageCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.collection == "images" {
			n++
		}
	}
	return n
}

func textHit(filename string, chunkID int, score float64) vectorindex.Hit {
	return vectorindex.Hit{
		ID:    filename,
		Score: score,
		Payload: map[string]interface{}{
			"text":       "chunk content",
			"filename":   filename,
			"chunk_id":   float64(chunkID),
			"word_count": float64(10),
		},
	}
}

func imageHit(imageID, caption string, score float64) vectorindex.Hit {
	return vectorindex.Hit{
		ID:    imageID,
		Score: score,
		Payload: map[string]interface{}{
			"image_id":     imageID,
			"caption":      caption,
			"pdf_filename": "doc.pdf",
			"page_number":  float64(2),
		},
	}
}

func testConfig() Config {
	return Config{
		TextCollection:     "text",
		ImagesCollection:   "images",
		ScoreThreshold:     0.3,
		ImageThreshold:     0.2,
		EmergencyThreshold: 0.01,
		ImageScoreBoost:    1.2,
		MaxImagesPerQuery:  5,
		MaxFanout:          16,
		MaxKeywords:        8,
	}
}

func newTestRetriever(t *testing.T, idx *fakeIndex) *Retriever {
	t.Helper()
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	return New(idx, emb, testConfig())
}

func TestRetrieve_BroadStageSufficient(t *testing.T) {
	idx := &fakeIndex{
		searchFn: func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error) {
			hits := make([]vectorindex.Hit, 0, 6)
			for i := 0; i < 6; i++ {
				hits = append(hits, textHit("doc.pdf", i, 0.9-float64(i)*0.05))
			}
			return hits, nil
		},
	}
	r := newTestRetriever(t, idx)

	candidates, class, err := r.Retrieve(context.Background(), "summarize the architecture overview", 10)
	require.NoError(t, err)

	assert.False(t, class.IsVisual)
	assert.Len(t, candidates, 6)
	// 6 >= 10/2, so no keyword fan-out; no references, no emergency
	assert.Equal(t, 1, idx.textCalls())
	assert.Equal(t, types.StrategyBroad, candidates[0].Strategy)
}

func TestRetrieve_KeywordFanoutWhenUnderProduced(t *testing.T) {
	idx := &fakeIndex{
		searchFn: func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error) {
			return []vectorindex.Hit{textHit("doc.pdf", 0, 0.8)}, nil
		},
	}
	r := newTestRetriever(t, idx)

	_, _, err := r.Retrieve(context.Background(), "explain database sharding strategies", 10)
	require.NoError(t, err)

	// 1 broad + one search per keyword (database, sharding, strategies, explain)
	assert.Greater(t, idx.textCalls(), 1)
}

func TestRetrieve_ReferenceFanout(t *testing.T) {
	idx := &fakeIndex{
		searchFn: func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error) {
			hits := make([]vectorindex.Hit, 0, 10)
			for i := 0; i < 10; i++ {
				hits = append(hits, textHit("doc.pdf", i, 0.9))
			}
			return hits, nil
		},
	}
	r := newTestRetriever(t, idx)

	_, _, err := r.Retrieve(context.Background(), "what is in chapter 3?", 10)
	require.NoError(t, err)

	// Broad stage produced enough to skip keywords, but the reference "3"
	// still fans out: 1 broad + 9 reference variants
	assert.Equal(t, 10, idx.textCalls())
}

func TestRetrieve_ReferenceFanoutBounded(t *testing.T) {
	idx := &fakeIndex{
		searchFn: func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error) {
			hits := make([]vectorindex.Hit, 0, 10)
			for i := 0; i < 10; i++ {
				hits = append(hits, textHit("doc.pdf", i, 0.9))
			}
			return hits, nil
		},
	}
	cfg := testConfig()
	cfg.MaxFanout = 4
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	r := New(idx, emb, cfg)

	_, _, err = r.Retrieve(context.Background(), "pages 1 2 3 4 5 6 7 8 9 10", 10)
	require.NoError(t, err)

	// 1 broad + at most MaxFanout reference searches
	assert.LessOrEqual(t, idx.textCalls(), 1+4)
}

func TestRetrieve_EmergencyStageGuarantee(t *testing.T) {
	idx := &fakeIndex{
		searchFn: func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error) {
			// Only the near-zero threshold search finds anything
			if threshold <= 0.01 {
				return []vectorindex.Hit{textHit("doc.pdf", 0, 0.05)}, nil
			}
			return nil, nil
		},
	}
	r := newTestRetriever(t, idx)

	candidates, _, err := r.Retrieve(context.Background(), "zzz", 10)
	require.NoError(t, err)

	require.NotEmpty(t, candidates)
	assert.Equal(t, types.StrategyEmergency, candidates[0].Strategy)
}

func TestRetrieve_VisualQuerySearchesImages(t *testing.T) {
	idx := &fakeIndex{
		searchFn: func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error) {
			if collection == "images" {
				assert.Equal(t, 5, limit)
				assert.Equal(t, 0.2, threshold)
				return []vectorindex.Hit{imageHit("img-1", "Figure 2: revenue trend", 0.7)}, nil
			}
			return []vectorindex.Hit{textHit("doc.pdf", 0, 0.8)}, nil
		},
	}
	r := newTestRetriever(t, idx)

	candidates, class, err := r.Retrieve(context.Background(), "show me the revenue figure", 10)
	require.NoError(t, err)

	assert.True(t, class.IsVisual)
	assert.Equal(t, 1, idx.imageCalls())

	var foundImage bool
	for _, c := range candidates {
		if c.Modality == types.ModalityImage {
			foundImage = true
			assert.Equal(t, "Figure 2: revenue trend", c.Image.Caption)
		}
	}
	assert.True(t, foundImage)
}

func TestRetrieve_NonVisualSkipsImages(t *testing.T) {
	idx := &fakeIndex{
		searchFn: func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error) {
			return []vectorindex.Hit{textHit("doc.pdf", 0, 0.8)}, nil
		},
	}
	r := newTestRetriever(t, idx)

	_, _, err := r.Retrieve(context.Background(), "what is the refund policy", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.imageCalls())
}

func TestRetrieve_IndexUnavailable(t *testing.T) {
	idx := &fakeIndex{
		searchFn: func(collection string, limit int, threshold float64) ([]vectorindex.Hit, error) {
			return nil, vectorindex.ErrUnavailable
		},
	}
	r := newTestRetriever(t, idx)

	_, _, err := r.Retrieve(context.Background(), "anything", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRetrievalUnavailable)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	idx := &fakeIndex{}
	r := New(idx, &failingEmbedder{}, testConfig())

	_, _, err := r.Retrieve(context.Background(), "anything", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingFailed)
}

// failingEmbedder always errors.
type failingEmbedder struct{}

func (f *failingEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	return nil, errors.New("provider down")
}

func (f *failingEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	return nil, errors.New("provider down")
}

func (f *failingEmbedder) Dimension() int   { return 384 }
func (f *failingEmbedder) Provider() string { return "failing" }
func (f *failingEmbedder) Model() string    { return "failing" }
func (f *failingEmbedder) Close() error     { return nil }
