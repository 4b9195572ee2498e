package ingest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/docrag/docrag-mcp/internal/catalog"
	"github.com/docrag/docrag-mcp/internal/embedder"
	"github.com/docrag/docrag-mcp/internal/renderer"
	"github.com/docrag/docrag-mcp/internal/segmenter"
	"github.com/docrag/docrag-mcp/internal/vectorindex"
	"github.com/docrag/docrag-mcp/pkg/types"
)

// Config holds the ingestion knobs.
type Config struct {
	TextCollection   string
	ImagesCollection string
	VectorSize       int
	ImagesDir        string
	ChunkSize        int
	ChunkOverlap     int
}

// Result summarizes one successfully ingested document.
type Result struct {
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
	Images   int    `json:"images"`
}

// Pipeline turns source documents into indexed chunks and image captions:
// render pages, clean and segment text, embed, upsert into the vector index,
// and record the document in the catalog.
type Pipeline struct {
	renderer renderer.Renderer
	seg      *segmenter.Segmenter
	embedder embedder.Embedder
	index    vectorindex.Index
	catalog  catalog.Catalog
	cfg      Config
}

// New creates an ingestion pipeline.
func New(rend renderer.Renderer, emb embedder.Embedder, index vectorindex.Index, cat catalog.Catalog, cfg Config) *Pipeline {
	return &Pipeline{
		renderer: rend,
		seg:      segmenter.New(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder: emb,
		index:    index,
		catalog:  cat,
		cfg:      cfg,
	}
}

// ProcessDocument ingests a single document end to end. Chunk indexing is
// all-or-nothing; image extraction and persistence are best-effort, so a
// document whose images cannot be saved still indexes its text.
func (p *Pipeline) ProcessDocument(ctx context.Context, path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	pages, err := p.renderer.RenderPages(path)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(path)

	var sb strings.Builder
	totalImages := 0
	for _, pg := range pages {
		if pg.Text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(pg.Text)
		}
		totalImages += len(pg.Images)
	}

	chunks, err := p.seg.Segment(segmenter.Clean(sb.String()), filename)
	if err != nil {
		// A scanned document can carry images and no extractable text
		if !errors.Is(err, types.ErrEmptyDocument) || totalImages == 0 {
			return nil, err
		}
		chunks = nil
	}

	if err := p.index.EnsureCollection(ctx, p.cfg.TextCollection, p.cfg.VectorSize); err != nil {
		return nil, fmt.Errorf("ensure text collection: %w", err)
	}
	if err := p.index.EnsureCollection(ctx, p.cfg.ImagesCollection, p.cfg.VectorSize); err != nil {
		return nil, fmt.Errorf("ensure images collection: %w", err)
	}

	if err := p.indexChunks(ctx, chunks); err != nil {
		return nil, err
	}

	images, err := p.extractImages(ctx, pages, filename)
	if err != nil {
		log.Printf("image extraction failed for %s: %v", filename, err)
		images = nil
	}

	doc := &catalog.Document{
		Filename:    filename,
		Path:        path,
		ContentHash: sha256.Sum256(raw),
		SizeBytes:   int64(len(raw)),
		PageCount:   len(pages),
		ChunkCount:  len(chunks),
		ImageCount:  len(images),
	}
	if err := p.catalog.UpsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	for _, img := range images {
		record := &catalog.Image{
			DocumentID: doc.ID,
			ImageID:    img.ImageID,
			PageNumber: img.PageNumber,
			ImageIndex: img.ImageIndex,
			ImagePath:  img.ImagePath,
			Caption:    img.Caption,
			Width:      img.Width,
			Height:     img.Height,
		}
		if err := p.catalog.RecordImage(ctx, record); err != nil {
			log.Printf("catalog image record failed for %s: %v", img.ImageID, err)
		}
	}

	return &Result{
		Filename: filename,
		Pages:    len(pages),
		Chunks:   len(chunks),
		Images:   len(images),
	}, nil
}

// ProcessDirectory ingests every supported document under dir, in sorted
// order. A failing document is logged and skipped; the rest of the batch
// still ingests.
func (p *Pipeline) ProcessDirectory(ctx context.Context, dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	var results []Result
	for _, path := range paths {
		res, err := p.ProcessDocument(ctx, path)
		if err != nil {
			log.Printf("ingest failed for %s: %v", path, err)
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

// indexChunks embeds chunk texts in provider-sized batches and upserts them
// into the text collection.
func (p *Pipeline) indexChunks(ctx context.Context, chunks []types.Chunk) error {
	for start := 0; start < len(chunks); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		resp, err := p.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrEmbeddingFailed, err)
		}

		points := make([]vectorindex.Point, len(batch))
		for i, c := range batch {
			points[i] = vectorindex.Point{
				ID:     uuid.NewString(),
				Vector: resp.Embeddings[i].Vector,
				Payload: map[string]interface{}{
					"text":       c.Text,
					"filename":   c.Filename,
					"chunk_id":   c.ChunkID,
					"word_count": c.WordCount,
					"has_code":   c.HasCode,
					"has_list":   c.HasList,
					"has_table":  c.HasTable,
				},
			}
		}
		if err := p.index.Upsert(ctx, p.cfg.TextCollection, points); err != nil {
			return fmt.Errorf("upsert chunks: %w", err)
		}
	}
	return nil
}

// extractImages saves page images to disk, derives captions from surrounding
// page text, embeds the captions, and upserts them into the image collection.
func (p *Pipeline) extractImages(ctx context.Context, pages []renderer.Page, filename string) ([]types.ImageUnit, error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	var units []types.ImageUnit
	for _, pg := range pages {
		for idx, img := range pg.Images {
			unit := types.ImageUnit{
				ImageID:     fmt.Sprintf("%s_p%d_i%d", base, pg.Number, idx),
				PDFFilename: filename,
				PageNumber:  pg.Number,
				ImageIndex:  idx,
				Caption:     renderer.DeriveCaption(pg.Text, filename, pg.Number, idx),
				Width:       img.Width,
				Height:      img.Height,
			}

			path, err := p.saveImage(unit.ImageID, img)
			if err != nil {
				log.Printf("image save failed for %s: %v", unit.ImageID, err)
				continue
			}
			unit.ImagePath = path
			units = append(units, unit)
		}
	}

	if len(units) == 0 {
		return nil, nil
	}

	captions := make([]string, len(units))
	for i, u := range units {
		captions[i] = u.Caption
	}
	resp, err := p.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: captions})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingFailed, err)
	}

	points := make([]vectorindex.Point, len(units))
	for i, u := range units {
		points[i] = vectorindex.Point{
			ID:     uuid.NewString(),
			Vector: resp.Embeddings[i].Vector,
			Payload: map[string]interface{}{
				"image_id":     u.ImageID,
				"pdf_filename": u.PDFFilename,
				"page_number":  u.PageNumber,
				"image_index":  u.ImageIndex,
				"image_path":   u.ImagePath,
				"caption":      u.Caption,
				"width":        u.Width,
				"height":       u.Height,
			},
		}
	}
	if err := p.index.Upsert(ctx, p.cfg.ImagesCollection, points); err != nil {
		return nil, fmt.Errorf("upsert images: %w", err)
	}

	return units, nil
}

func (p *Pipeline) saveImage(imageID string, img renderer.RawImage) (string, error) {
	if err := os.MkdirAll(p.cfg.ImagesDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(p.cfg.ImagesDir, imageID+"."+img.Format)
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
