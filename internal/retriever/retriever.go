package retriever

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docrag/docrag-mcp/internal/embedder"
	"github.com/docrag/docrag-mcp/internal/query"
	"github.com/docrag/docrag-mcp/internal/vectorindex"
	"github.com/docrag/docrag-mcp/pkg/types"
)

const (
	// fanoutParallelism bounds concurrent index searches within a stage
	fanoutParallelism = 4

	// emergencyLimitFactor widens the emergency search relative to top-k
	emergencyLimitFactor = 5
)

// Config holds the retrieval knobs.
type Config struct {
	TextCollection   string
	ImagesCollection string

	ScoreThreshold     float64 // stage 1 text threshold
	ImageThreshold     float64 // image-caption collection, lower on purpose
	EmergencyThreshold float64 // near-zero, stage 4

	ImageScoreBoost   float64
	MaxImagesPerQuery int
	MaxFanout         int // cap on reference searches per query
	MaxKeywords       int // cap on keyword searches per query
}

// Retriever fans out progressively widening searches against the vector
// index and collects raw candidates per modality. It holds no per-query
// state; concurrent Retrieve calls need no coordination.
type Retriever struct {
	index    vectorindex.Index
	embedder embedder.Embedder
	cfg      Config
}

// New creates a Retriever.
func New(index vectorindex.Index, emb embedder.Embedder, cfg Config) *Retriever {
	if cfg.MaxFanout <= 0 {
		cfg.MaxFanout = 16
	}
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = 8
	}
	if cfg.MaxImagesPerQuery <= 0 {
		cfg.MaxImagesPerQuery = 5
	}
	if cfg.ImageScoreBoost < 1.0 {
		cfg.ImageScoreBoost = 1.2
	}
	return &Retriever{index: index, embedder: emb, cfg: cfg}
}

// Retrieve runs the progressive multi-strategy search and returns pre-fusion
// candidates in stage order:
//
//	Stage 1 (broad):     one similarity search at the configured threshold.
//	Stage 2 (keywords):  per-keyword fan-out, only if stage 1 under-produces
//	                     (fewer than topK/2 hits).
//	Stage 3 (references): per-reference fan-out whenever the query contains
//	                     structural references.
//	Stage 4 (emergency): near-zero threshold search, only if the union is
//	                     still empty, guaranteeing output for a non-empty index.
//
// Visual-intent queries additionally search the image-caption collection.
// Fan-out searches within a stage run concurrently; results are collected in
// deterministic per-term order before fusion.
func (r *Retriever) Retrieve(ctx context.Context, q string, topK int) ([]types.Candidate, query.Classification, error) {
	if topK <= 0 {
		topK = 10
	}

	class := query.Classify(q)

	queryEmb, err := r.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: q})
	if err != nil {
		return nil, class, fmt.Errorf("%w: %v", types.ErrEmbeddingFailed, err)
	}

	var candidates []types.Candidate

	// Stage 1: broad similarity search
	broad, err := r.searchText(ctx, queryEmb.Vector, topK, r.cfg.ScoreThreshold, types.StrategyBroad)
	if err != nil {
		return nil, class, err
	}
	candidates = append(candidates, broad...)

	// Stage 2: keyword fan-out when the broad search under-produces
	if len(broad) < topK/2 {
		keywords := query.ExtractKeywords(q)
		if len(keywords) > r.cfg.MaxKeywords {
			keywords = keywords[:r.cfg.MaxKeywords]
		}
		stage2 := r.fanOut(ctx, keywords, topK*2, r.cfg.ScoreThreshold, types.StrategyKeyword)
		candidates = append(candidates, stage2...)
	}

	// Stage 3: reference fan-out, deduplicated and bounded
	refs := query.ExtractReferences(q, r.cfg.MaxFanout)
	if len(refs) > 0 {
		stage3 := r.fanOut(ctx, refs, topK, r.cfg.ScoreThreshold, types.StrategyReference)
		candidates = append(candidates, stage3...)
	}

	// Stage 4: emergency low-threshold search when everything else came up
	// empty. Non-empty index implies non-empty output here.
	if len(candidates) == 0 {
		emergency, err := r.searchText(ctx, queryEmb.Vector, topK*emergencyLimitFactor, r.cfg.EmergencyThreshold, types.StrategyEmergency)
		if err != nil {
			return nil, class, err
		}
		candidates = append(candidates, emergency...)
	}

	// Parallel image-caption search for visual-intent queries
	if class.IsVisual {
		images, err := r.searchImages(ctx, queryEmb.Vector)
		if err != nil {
			// Image search failure degrades to text-only results
			log.Printf("image search failed: %v", err)
		} else {
			candidates = append(candidates, images...)
		}
	}

	return candidates, class, nil
}

// fanOut embeds each term and searches the text collection once per term,
// concurrently but with bounded parallelism. Results keep per-term order so
// the candidate sequence is deterministic regardless of scheduling.
// Individual search failures degrade that term to zero hits; the remaining
// terms still contribute.
func (r *Retriever) fanOut(ctx context.Context, terms []string, limit int, threshold float64, strategy types.Strategy) []types.Candidate {
	if len(terms) == 0 {
		return nil
	}

	batch, err := r.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: terms})
	if err != nil {
		log.Printf("fan-out embedding failed for %d terms: %v", len(terms), err)
		return nil
	}

	perTerm := make([][]types.Candidate, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutParallelism)
	var mu sync.Mutex

	for i := range terms {
		g.Go(func() error {
			hits, err := r.searchText(gctx, batch.Embeddings[i].Vector, limit, threshold, strategy)
			if err != nil {
				log.Printf("fan-out search %q failed: %v", terms[i], err)
				return nil
			}
			mu.Lock()
			perTerm[i] = hits
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return an error; Wait only observes ctx cancellation.
	_ = g.Wait()

	var out []types.Candidate
	for _, hits := range perTerm {
		out = append(out, hits...)
	}
	return out
}

func (r *Retriever) searchText(ctx context.Context, vector []float32, limit int, threshold float64, strategy types.Strategy) ([]types.Candidate, error) {
	hits, err := r.index.Search(ctx, r.cfg.TextCollection, vector, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRetrievalUnavailable, err)
	}

	candidates := make([]types.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, textCandidate(hit, strategy))
	}
	return candidates, nil
}

func (r *Retriever) searchImages(ctx context.Context, vector []float32) ([]types.Candidate, error) {
	hits, err := r.index.Search(ctx, r.cfg.ImagesCollection, vector, r.cfg.MaxImagesPerQuery, r.cfg.ImageThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRetrievalUnavailable, err)
	}

	candidates := make([]types.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, imageCandidate(hit))
	}
	return candidates, nil
}

func textCandidate(hit vectorindex.Hit, strategy types.Strategy) types.Candidate {
	chunk := &types.Chunk{
		Text:      payloadString(hit.Payload, "text"),
		Filename:  payloadString(hit.Payload, "filename"),
		ChunkID:   payloadInt(hit.Payload, "chunk_id"),
		WordCount: payloadInt(hit.Payload, "word_count"),
		HasCode:   payloadBool(hit.Payload, "has_code"),
		HasList:   payloadBool(hit.Payload, "has_list"),
		HasTable:  payloadBool(hit.Payload, "has_table"),
	}
	return types.Candidate{
		Modality: types.ModalityText,
		Score:    hit.Score,
		Strategy: strategy,
		Chunk:    chunk,
	}
}

func imageCandidate(hit vectorindex.Hit) types.Candidate {
	image := &types.ImageUnit{
		ImageID:     payloadString(hit.Payload, "image_id"),
		ImagePath:   payloadString(hit.Payload, "image_path"),
		PageNumber:  payloadInt(hit.Payload, "page_number"),
		ImageIndex:  payloadInt(hit.Payload, "image_index"),
		PDFFilename: payloadString(hit.Payload, "pdf_filename"),
		Caption:     payloadString(hit.Payload, "caption"),
		Width:       payloadInt(hit.Payload, "width"),
		Height:      payloadInt(hit.Payload, "height"),
	}
	return types.Candidate{
		Modality: types.ModalityImage,
		Score:    hit.Score,
		Strategy: types.StrategyImage,
		Image:    image,
	}
}

// Payload values arrive from JSON decoding, so numbers are float64.

func payloadString(p map[string]interface{}, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(p map[string]interface{}, key string) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func payloadBool(p map[string]interface{}, key string) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return false
}
