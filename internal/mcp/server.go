package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/docrag/docrag-mcp/internal/answer"
	"github.com/docrag/docrag-mcp/internal/catalog"
	"github.com/docrag/docrag-mcp/internal/config"
	"github.com/docrag/docrag-mcp/internal/embedder"
	"github.com/docrag/docrag-mcp/internal/ingest"
	"github.com/docrag/docrag-mcp/internal/renderer"
	"github.com/docrag/docrag-mcp/internal/retriever"
	"github.com/docrag/docrag-mcp/internal/vectorindex"
)

const (
	// ServerName is the MCP server name
	ServerName = "docrag-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	pipeline  *ingest.Pipeline
	retriever *retriever.Retriever
	service   *answer.Service
	catalog   catalog.Catalog
	index     vectorindex.Index
	cfg       *config.Config
}

// NewServer creates a new MCP server instance with real components wired from
// configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	catalogPath := cfg.CatalogPath
	if catalogPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir := filepath.Join(home, ".docrag")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
		catalogPath = filepath.Join(dir, "catalog.db")
	}

	cat, err := catalog.NewSQLite(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	index := vectorindex.NewQdrant(vectorindex.QdrantConfig{
		URL:     cfg.QdrantURL,
		APIKey:  cfg.QdrantAPIKey,
		Timeout: cfg.IndexTimeout,
	})

	// Without a generation key, ask_question degrades to retrieval-only
	// answers; ingestion and search stay fully functional.
	var gen answer.Generator
	if cfg.GeminiAPIKey != "" {
		gen, err = answer.NewGeminiGenerator(cfg.GeminiAPIKey)
		if err != nil {
			_ = cat.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
	} else {
		gen = unavailableGenerator{}
	}

	return newServerWithDeps(cfg, cat, emb, index, gen), nil
}

// newServerWithDeps wires a server from explicit components. Tests inject
// fakes through this path.
func newServerWithDeps(cfg *config.Config, cat catalog.Catalog, emb embedder.Embedder, index vectorindex.Index, gen answer.Generator) *Server {
	pipeline := ingest.New(renderer.NewPDF(), emb, index, cat, ingest.Config{
		TextCollection:   cfg.TextCollection,
		ImagesCollection: cfg.ImagesCollection,
		VectorSize:       cfg.VectorSize,
		ImagesDir:        cfg.ImagesDir,
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
	})

	ret := retriever.New(index, emb, retriever.Config{
		TextCollection:     cfg.TextCollection,
		ImagesCollection:   cfg.ImagesCollection,
		ScoreThreshold:     cfg.ScoreThreshold,
		ImageThreshold:     cfg.ImageThreshold,
		EmergencyThreshold: cfg.EmergencyThreshold,
		ImageScoreBoost:    cfg.ImageScoreBoost,
		MaxImagesPerQuery:  cfg.MaxImagesPerQuery,
		MaxFanout:          cfg.MaxFanout,
		MaxKeywords:        cfg.MaxKeywords,
	})

	svc := answer.NewService(ret, gen, answer.Config{
		TopK:             cfg.TopK,
		MaxContextChunks: cfg.MaxContextChunks,
	})

	mcpServer := server.NewMCPServer(ServerName, ServerVersion)

	s := &Server{
		mcp:       mcpServer,
		pipeline:  pipeline,
		retriever: ret,
		service:   svc,
		catalog:   cat,
		index:     index,
		cfg:       cfg,
	}
	s.registerTools()

	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.catalog.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(askQuestionTool(), s.handleAskQuestion)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(collectionStatsTool(), s.handleCollectionStats)
	s.mcp.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.mcp.AddTool(resetCollectionsTool(), s.handleResetCollections)
}

// unavailableGenerator stands in when no generation API key is configured.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", answer.ErrMissingAPIKey
}

func (unavailableGenerator) Model() string { return "none" }
func (unavailableGenerator) Close() error { return nil }
