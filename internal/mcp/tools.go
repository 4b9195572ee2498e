package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docrag/docrag-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeIndexUnavailable = -32001 // Vector index unreachable
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	info, err := validateDocumentPath(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	var results []ingestSummary
	if info.IsDir() {
		dirResults, err := s.pipeline.ProcessDirectory(ctx, path)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		for _, r := range dirResults {
			results = append(results, ingestSummary{r.Filename, r.Pages, r.Chunks, r.Images})
		}
	} else {
		r, err := s.pipeline.ProcessDocument(ctx, path)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		results = append(results, ingestSummary{r.Filename, r.Pages, r.Chunks, r.Images})
	}

	documents := make([]map[string]interface{}, 0, len(results))
	totalChunks, totalImages := 0, 0
	for _, r := range results {
		documents = append(documents, map[string]interface{}{
			"filename": r.filename,
			"pages":    r.pages,
			"chunks":   r.chunks,
			"images":   r.images,
		})
		totalChunks += r.chunks
		totalImages += r.images
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"ingested":       true,
		"document_count": len(results),
		"total_chunks":   totalChunks,
		"total_images":   totalImages,
		"documents":      documents,
	})), nil
}

type ingestSummary struct {
	filename string
	pages    int
	chunks   int
	images   int
}

// handleAskQuestion handles the ask_question tool invocation
func (s *Server) handleAskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, ok := args["question"].(string)
	if !ok || strings.TrimSpace(question) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	// Ask never fails; degradation is encoded in the answer itself
	ans := s.service.Ask(ctx, question)

	payload, err := json.MarshalIndent(ans, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode answer", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	candidates, class, err := s.retriever.Retrieve(ctx, query, limit)
	if err != nil {
		if errors.Is(err, types.ErrRetrievalUnavailable) {
			return nil, newMCPError(ErrorCodeIndexUnavailable, "vector index unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	ranked := s.retriever.Fuse(candidates, limit, class.IsVisual)

	results := make([]map[string]interface{}, 0, len(ranked))
	for _, r := range ranked {
		entry := map[string]interface{}{
			"rank":     r.Rank,
			"score":    r.AdjustedScore,
			"strategy": string(r.Strategy),
			"modality": string(r.Modality),
		}
		switch r.Modality {
		case types.ModalityImage:
			entry["filename"] = r.Image.PDFFilename
			entry["page_number"] = r.Image.PageNumber
			entry["caption"] = r.Image.Caption
			entry["image_path"] = r.Image.ImagePath
		default:
			entry["filename"] = r.Chunk.Filename
			entry["chunk_id"] = r.Chunk.ChunkID
			entry["text"] = snippet(r.Chunk.Text, 300)
		}
		results = append(results, entry)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":        query,
		"visual_query": class.IsVisual,
		"result_count": len(results),
		"results":      results,
	})), nil
}

// handleCollectionStats handles the collection_stats tool invocation
func (s *Server) handleCollectionStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read catalog stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"documents_count": stats.DocumentsCount,
		"chunks_count":    stats.ChunksCount,
		"images_count":    stats.ImagesCount,
	}
	if !stats.LastIngestedAt.IsZero() {
		response["last_ingested_at"] = stats.LastIngestedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	// Index stats are best-effort; the catalog still answers when the index
	// is unreachable
	collections := map[string]interface{}{}
	for _, name := range []string{s.cfg.TextCollection, s.cfg.ImagesCollection} {
		info, err := s.index.Info(ctx, name)
		if err != nil {
			collections[name] = map[string]interface{}{"error": err.Error()}
			continue
		}
		collections[name] = map[string]interface{}{
			"points_count": info.PointsCount,
			"status":       info.Status,
		}
	}
	response["collections"] = collections

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListDocuments handles the list_documents tool invocation
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.catalog.ListDocuments(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list documents", map[string]interface{}{
			"error": err.Error(),
		})
	}

	documents := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		documents = append(documents, map[string]interface{}{
			"filename":    doc.Filename,
			"pages":       doc.PageCount,
			"chunks":      doc.ChunkCount,
			"images":      doc.ImageCount,
			"size_bytes":  doc.SizeBytes,
			"ingested_at": doc.IngestedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_count": len(documents),
		"documents":      documents,
	})), nil
}

// handleResetCollections handles the reset_collections tool invocation
func (s *Server) handleResetCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	confirmed, _ := args["confirm"].(bool)
	if !confirmed {
		return nil, newMCPError(ErrorCodeInvalidParams, "confirm must be true to reset collections", map[string]interface{}{
			"param":  "confirm",
			"reason": "destructive operation requires explicit confirmation",
		})
	}

	for _, name := range []string{s.cfg.TextCollection, s.cfg.ImagesCollection} {
		if err := s.index.Drop(ctx, name); err != nil {
			return nil, newMCPError(ErrorCodeIndexUnavailable, "failed to drop collection", map[string]interface{}{
				"collection": name,
				"error":      err.Error(),
			})
		}
		if err := s.index.EnsureCollection(ctx, name, s.cfg.VectorSize); err != nil {
			return nil, newMCPError(ErrorCodeIndexUnavailable, "failed to recreate collection", map[string]interface{}{
				"collection": name,
				"error":      err.Error(),
			})
		}
	}

	if err := s.catalog.Reset(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to reset catalog", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"reset":       true,
		"collections": []string{s.cfg.TextCollection, s.cfg.ImagesCollection},
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotPDF          = errors.New("file is not a PDF document")
)

// validateDocumentPath checks that path is an absolute, readable PDF file or
// a directory.
func validateDocumentPath(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return nil, ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, ErrPathNotReadable
	}

	if !info.IsDir() && !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, ErrNotPDF
	}
	return info, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// snippet truncates text for search result previews
func snippet(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
