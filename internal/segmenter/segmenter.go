package segmenter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docrag/docrag-mcp/pkg/types"
)

const (
	// DefaultChunkSize is the word budget per chunk when none is configured
	DefaultChunkSize = 2000
)

var (
	sectionBoundary = regexp.MustCompile(`\n\s*\n`)
	bulletPrefix    = regexp.MustCompile(`(?m)^\s*[-*]\s`)
	numberedPrefix  = regexp.MustCompile(`(?m)^(\s*\d+\.)\s+`)
)

// Segmenter splits cleaned document text into size-bounded chunks that never
// break inside a section (a span of text with no blank-line boundary).
type Segmenter struct {
	chunkSize int
	// chunkOverlap is reserved for a future overlap strategy. It is carried
	// through configuration but not applied: overlapping windows would break
	// the coverage guarantee that concatenated chunks reproduce the input.
	chunkOverlap int
}

// New creates a Segmenter with the given word budget per chunk.
func New(chunkSize, chunkOverlap int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Segmenter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Clean normalizes document text while preserving structure: trailing
// whitespace is stripped per line, list bullets are normalized, and runs of
// three or more newlines collapse to a single blank line. Code fences, tables
// and indentation survive untouched.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")

	text = bulletPrefix.ReplaceAllString(text, "• ")
	text = numberedPrefix.ReplaceAllString(text, "$1 ")

	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}

// Segment splits text into an ordered sequence of chunks. Sections (separated
// by blank lines) are accumulated greedily until the word budget would be
// exceeded; the overflowing section starts the next chunk. A single section
// larger than the budget is emitted intact as one oversized chunk rather than
// split mid-structure.
//
// Segment is a pure function: identical input always produces an identical
// chunk sequence.
func (s *Segmenter) Segment(text, filename string) ([]types.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", filename, types.ErrEmptyDocument)
	}

	sections := sectionBoundary.Split(text, -1)

	var (
		chunks      []types.Chunk
		current     []string
		currentSize int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunkText := strings.Join(current, "\n\n")
		chunks = append(chunks, types.NewChunk(chunkText, filename, len(chunks)))
		current = current[:0]
		currentSize = 0
	}

	for _, section := range sections {
		if strings.TrimSpace(section) == "" {
			continue
		}
		sectionSize := len(strings.Fields(section))

		if currentSize+sectionSize > s.chunkSize && currentSize > 0 {
			flush()
		}
		current = append(current, section)
		currentSize += sectionSize
	}
	flush()

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, types.ErrEmptyDocument)
	}

	return chunks, nil
}

// ChunkSize returns the configured word budget.
func (s *Segmenter) ChunkSize() int {
	return s.chunkSize
}
