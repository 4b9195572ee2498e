package answer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/docrag/docrag-mcp/internal/query"
	"github.com/docrag/docrag-mcp/pkg/types"
)

// Retriever is the retrieval surface the service depends on.
type Retriever interface {
	Retrieve(ctx context.Context, q string, topK int) ([]types.Candidate, query.Classification, error)
	Fuse(candidates []types.Candidate, topK int, visual bool) []types.RankedResult
}

// Degradation messages. Every failure path produces a well-formed answer
// carrying one of these instead of an error.
const (
	msgEmptyQuestion    = "Please ask a question about your documents."
	msgGreeting         = "Hello! Ask me anything about the documents you have ingested."
	msgNothingRelevant  = "I could not find anything relevant to that question in the ingested documents."
	msgRetrievalFailure = "The document index is currently unavailable. Please try again shortly."
	msgGenerationError  = "I found relevant content but could not generate an answer. Please try again."
)

const promptTemplate = `You are a helpful assistant answering questions about a document collection.
Use ONLY the sources below. If the sources do not contain the answer, say so.
Preserve any code blocks, lists, and tables from the sources in your answer.

Sources:
%s

Question: %s

Answer:`

// Config holds the answer service knobs.
type Config struct {
	TopK             int
	MaxContextChunks int
}

// Service answers questions over the ingested corpus: classify, retrieve,
// fuse, assemble a bounded context, and generate.
type Service struct {
	retriever Retriever
	generator Generator
	cfg       Config
}

// NewService creates an answer service.
func NewService(r Retriever, gen Generator, cfg Config) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 25
	}
	if cfg.MaxContextChunks <= 0 {
		cfg.MaxContextChunks = 12
	}
	return &Service{retriever: r, generator: gen, cfg: cfg}
}

// Ask answers a question. It never returns an error: every failure mode
// degrades to an answer explaining what happened, with empty sources and zero
// confidence.
func (s *Service) Ask(ctx context.Context, question string) *types.Answer {
	question = strings.TrimSpace(question)
	if question == "" {
		return types.Degraded(msgEmptyQuestion)
	}

	// Greetings skip retrieval entirely
	if query.Classify(question).IsGreeting {
		return types.Degraded(msgGreeting)
	}

	candidates, class, err := s.retriever.Retrieve(ctx, question, s.cfg.TopK)
	if err != nil {
		log.Printf("retrieval failed: %v", err)
		return types.Degraded(msgRetrievalFailure)
	}

	ranked := s.retriever.Fuse(candidates, s.cfg.TopK, class.IsVisual)
	if len(ranked) == 0 {
		return types.Degraded(msgNothingRelevant)
	}

	contextBlock, used, sources := s.assembleContext(ranked)

	prompt := fmt.Sprintf(promptTemplate, contextBlock, question)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.Printf("generation failed: %v", err)
		return types.Degraded(msgGenerationError)
	}

	return &types.Answer{
		Text:              text,
		Sources:           sources,
		Confidence:        meanScore(ranked[:used]),
		RetrievedDocs:     len(ranked),
		ContextChunksUsed: used,
	}
}

// assembleContext formats the top-ranked results into the prompt context,
// bounded by the configured chunk budget. Image results contribute their
// captions and location; chunk text keeps its original formatting.
func (s *Service) assembleContext(ranked []types.RankedResult) (string, int, []types.Source) {
	limit := s.cfg.MaxContextChunks
	if limit > len(ranked) {
		limit = len(ranked)
	}

	var sb strings.Builder
	sources := make([]types.Source, 0, limit)

	for i, res := range ranked[:limit] {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch res.Modality {
		case types.ModalityImage:
			fmt.Fprintf(&sb, "Source %d (Score: %.3f, File: %s, Page %d) [Image]: %s",
				i+1, res.AdjustedScore, res.Image.PDFFilename, res.Image.PageNumber, res.Image.Caption)
			sources = append(sources, types.Source{
				Filename: res.Image.PDFFilename,
				Score:    res.AdjustedScore,
				Modality: string(types.ModalityImage),
				Caption:  res.Image.Caption,
			})
		default:
			fmt.Fprintf(&sb, "Source %d (Score: %.3f, File: %s): %s",
				i+1, res.AdjustedScore, res.Chunk.Filename, res.Chunk.Text)
			sources = append(sources, types.Source{
				Filename: res.Chunk.Filename,
				ChunkID:  res.Chunk.ChunkID,
				Score:    res.AdjustedScore,
				Modality: string(types.ModalityText),
			})
		}
	}

	return sb.String(), limit, sources
}

func meanScore(ranked []types.RankedResult) float64 {
	if len(ranked) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ranked {
		sum += r.AdjustedScore
	}
	return sum / float64(len(ranked))
}
