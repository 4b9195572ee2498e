package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrag/docrag-mcp/internal/answer"
	"github.com/docrag/docrag-mcp/internal/catalog"
	"github.com/docrag/docrag-mcp/internal/config"
	"github.com/docrag/docrag-mcp/internal/embedder"
	"github.com/docrag/docrag-mcp/internal/vectorindex"
)

// memoryIndex is an in-memory vectorindex.Index good enough for tool-handler
// tests: it stores points per collection and returns them all on search.
type memoryIndex struct {
	collections map[string][]vectorindex.Point
	dropped     []string
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{collections: make(map[string][]vectorindex.Point)}
}

func (m *memoryIndex) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = nil
	}
	return nil
}

func (m *memoryIndex) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	m.collections[collection] = append(m.collections[collection], points...)
	return nil
}

func (m *memoryIndex) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float64) ([]vectorindex.Hit, error) {
	points := m.collections[collection]
	hits := make([]vectorindex.Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, vectorindex.Hit{ID: p.ID, Score: 0.9, Payload: p.Payload})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (m *memoryIndex) Info(ctx context.Context, collection string) (*vectorindex.CollectionInfo, error) {
	return &vectorindex.CollectionInfo{
		PointsCount: int64(len(m.collections[collection])),
		Status:      "green",
	}, nil
}

func (m *memoryIndex) Drop(ctx context.Context, collection string) error {
	m.dropped = append(m.dropped, collection)
	delete(m.collections, collection)
	return nil
}

type cannedGenerator struct{ text string }

func (g cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.text, nil
}
func (g cannedGenerator) Model() string { return "canned" }
func (g cannedGenerator) Close() error { return nil }

func testServerConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TextCollection:   "text",
		ImagesCollection: "images",
		VectorSize:       embedder.LocalDimension,
		ChunkSize:        100,
		TopK:             10,
		ScoreThreshold:   0.3,
		ImageThreshold:   0.2,
		ImageScoreBoost:  1.2,
		MaxContextChunks: 12,
		ImagesDir:        filepath.Join(t.TempDir(), "images"),
	}
}

func newTestServer(t *testing.T, idx vectorindex.Index, gen answer.Generator) (*Server, *catalog.SQLiteCatalog) {
	t.Helper()
	cat, err := catalog.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = cat.Close()
	})

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	return newServerWithDeps(testServerConfig(t), cat, emb, idx, gen), cat
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func TestHandleIngestDocument_InvalidPath(t *testing.T) {
	s, _ := newTestServer(t, newMemoryIndex(), cannedGenerator{})

	_, err := s.handleIngestDocument(context.Background(), callRequest("ingest_document", map[string]interface{}{
		"path": "relative/path.pdf",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleIngestDocument_MissingPath(t *testing.T) {
	s, _ := newTestServer(t, newMemoryIndex(), cannedGenerator{})

	_, err := s.handleIngestDocument(context.Background(), callRequest("ingest_document", map[string]interface{}{}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleIngestDocument_NonPDF(t *testing.T) {
	s, _ := newTestServer(t, newMemoryIndex(), cannedGenerator{})

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := s.handleIngestDocument(context.Background(), callRequest("ingest_document", map[string]interface{}{
		"path": path,
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	assert.Contains(t, mcpErr.Data.(map[string]interface{})["reason"], "not a PDF")
}

func TestHandleAskQuestion_EmptyQuestion(t *testing.T) {
	s, _ := newTestServer(t, newMemoryIndex(), cannedGenerator{})

	_, err := s.handleAskQuestion(context.Background(), callRequest("ask_question", map[string]interface{}{
		"question": "   ",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestHandleAskQuestion_AnswersFromIndex(t *testing.T) {
	idx := newMemoryIndex()
	idx.collections["text"] = []vectorindex.Point{
		{
			ID: "p1",
			Payload: map[string]interface{}{
				"text":       "The warranty lasts two years.",
				"filename":   "warranty.pdf",
				"chunk_id":   float64(0),
				"word_count": float64(5),
			},
		},
	}
	s, _ := newTestServer(t, idx, cannedGenerator{text: "Two years."})

	result, err := s.handleAskQuestion(context.Background(), callRequest("ask_question", map[string]interface{}{
		"question": "how long is the warranty?",
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, result)
	assert.Equal(t, "Two years.", decoded["answer"])
	assert.NotEmpty(t, decoded["sources"])
	assert.Greater(t, decoded["confidence"].(float64), 0.0)
}

func TestHandleSearchDocuments_Validation(t *testing.T) {
	s, _ := newTestServer(t, newMemoryIndex(), cannedGenerator{})

	_, err := s.handleSearchDocuments(context.Background(), callRequest("search_documents", map[string]interface{}{
		"query": "",
	}))
	require.Error(t, err)

	_, err = s.handleSearchDocuments(context.Background(), callRequest("search_documents", map[string]interface{}{
		"query": "valid",
		"limit": float64(500),
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleSearchDocuments_ReturnsRankedResults(t *testing.T) {
	idx := newMemoryIndex()
	idx.collections["text"] = []vectorindex.Point{
		{
			ID: "p1",
			Payload: map[string]interface{}{
				"text":       "Shipping takes five business days.",
				"filename":   "shipping.pdf",
				"chunk_id":   float64(2),
				"word_count": float64(5),
			},
		},
	}
	s, _ := newTestServer(t, idx, cannedGenerator{})

	result, err := s.handleSearchDocuments(context.Background(), callRequest("search_documents", map[string]interface{}{
		"query": "how long does shipping take",
		"limit": float64(5),
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, result)
	assert.Equal(t, float64(1), decoded["result_count"])
	results := decoded["results"].([]interface{})
	first := results[0].(map[string]interface{})
	assert.Equal(t, "shipping.pdf", first["filename"])
	assert.Equal(t, float64(1), first["rank"])
}

func TestHandleCollectionStats(t *testing.T) {
	idx := newMemoryIndex()
	idx.collections["text"] = []vectorindex.Point{{ID: "p1"}}
	idx.collections["images"] = nil
	s, cat := newTestServer(t, idx, cannedGenerator{})

	require.NoError(t, cat.UpsertDocument(context.Background(), &catalog.Document{
		Filename: "a.pdf", Path: "/a.pdf", ChunkCount: 4,
	}))

	result, err := s.handleCollectionStats(context.Background(), callRequest("collection_stats", nil))
	require.NoError(t, err)

	decoded := resultJSON(t, result)
	assert.Equal(t, float64(1), decoded["documents_count"])
	assert.Equal(t, float64(4), decoded["chunks_count"])

	collections := decoded["collections"].(map[string]interface{})
	textStats := collections["text"].(map[string]interface{})
	assert.Equal(t, float64(1), textStats["points_count"])
}

func TestHandleListDocuments(t *testing.T) {
	s, cat := newTestServer(t, newMemoryIndex(), cannedGenerator{})

	require.NoError(t, cat.UpsertDocument(context.Background(), &catalog.Document{
		Filename: "b.pdf", Path: "/b.pdf", PageCount: 3, ChunkCount: 7,
	}))

	result, err := s.handleListDocuments(context.Background(), callRequest("list_documents", nil))
	require.NoError(t, err)

	decoded := resultJSON(t, result)
	assert.Equal(t, float64(1), decoded["document_count"])
	docs := decoded["documents"].([]interface{})
	first := docs[0].(map[string]interface{})
	assert.Equal(t, "b.pdf", first["filename"])
	assert.Equal(t, float64(7), first["chunks"])
}

func TestHandleResetCollections_RequiresConfirm(t *testing.T) {
	s, _ := newTestServer(t, newMemoryIndex(), cannedGenerator{})

	_, err := s.handleResetCollections(context.Background(), callRequest("reset_collections", map[string]interface{}{
		"confirm": false,
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleResetCollections_WipesEverything(t *testing.T) {
	idx := newMemoryIndex()
	idx.collections["text"] = []vectorindex.Point{{ID: "p1"}}
	s, cat := newTestServer(t, idx, cannedGenerator{})

	require.NoError(t, cat.UpsertDocument(context.Background(), &catalog.Document{
		Filename: "c.pdf", Path: "/c.pdf",
	}))

	result, err := s.handleResetCollections(context.Background(), callRequest("reset_collections", map[string]interface{}{
		"confirm": true,
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, result)
	assert.Equal(t, true, decoded["reset"])
	assert.Contains(t, idx.dropped, "text")
	assert.Contains(t, idx.dropped, "images")

	stats, err := cat.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.DocumentsCount)

	// Collections recreated empty
	assert.Empty(t, idx.collections["text"])
}
