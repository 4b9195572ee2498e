package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Structural patterns used to tag chunks. Compiled once; chunks are tagged at
// segmentation time and immutable afterwards.
var (
	codePattern  = regexp.MustCompile("```|\\b(func|def|class|import|from|package)\\b")
	listPattern  = regexp.MustCompile(`(?m)^\s*([-*•]|\d+\.)\s`)
	tablePattern = regexp.MustCompile(`\|.*\|`)
)

// Chunk is a bounded, structure-respecting segment of a document's text, the
// unit of text retrieval. Identity for deduplication is (Filename, ChunkID).
type Chunk struct {
	// Content
	Text      string
	WordCount int

	// Identification
	Filename string
	ChunkID  int // 0-based, insertion order within the document

	// Structural flags derived from the final chunk text
	HasCode  bool
	HasList  bool
	HasTable bool
}

// NewChunk builds a chunk from accumulated section text, computing the word
// count and structural flags.
func NewChunk(text, filename string, chunkID int) Chunk {
	c := Chunk{
		Text:     text,
		Filename: filename,
		ChunkID:  chunkID,
	}
	c.WordCount = len(strings.Fields(text))
	c.HasCode = codePattern.MatchString(text)
	c.HasList = listPattern.MatchString(text)
	c.HasTable = tablePattern.MatchString(text)
	return c
}

// Key returns the deduplication identity for this chunk.
func (c *Chunk) Key() string {
	return fmt.Sprintf("%s_%d", c.Filename, c.ChunkID)
}

// Validate checks the chunk invariants that hold independent of configuration.
func (c *Chunk) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyChunkText
	}
	if c.ChunkID < 0 {
		return ErrInvalidChunkID
	}
	return nil
}
