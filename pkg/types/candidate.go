package types

// Modality is the content type of a retrievable unit.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Strategy identifies which fan-out stage produced a candidate. Not persisted;
// used only for fusion ordering.
type Strategy string

const (
	StrategyBroad     Strategy = "broad"
	StrategyKeyword   Strategy = "keyword"
	StrategyReference Strategy = "reference"
	StrategyEmergency Strategy = "emergency"
	StrategyImage     Strategy = "image"
)

// Candidate is a scored hit returned by a single retrieval strategy, before
// fusion. Candidates are ephemeral and per-query.
type Candidate struct {
	Modality Modality
	Score    float64 // similarity in [0,1]
	Strategy Strategy

	// Exactly one of Chunk or Image is set, matching Modality.
	Chunk *Chunk
	Image *ImageUnit
}

// Key returns the deduplication identity of the underlying unit.
func (c *Candidate) Key() string {
	if c.Modality == ModalityImage && c.Image != nil {
		return c.Image.Key()
	}
	if c.Chunk != nil {
		return c.Chunk.Key()
	}
	return ""
}

// Validate checks candidate invariants.
func (c *Candidate) Validate() error {
	if c.Score < 0 || c.Score > 1 {
		return ErrInvalidScore
	}
	return nil
}

// RankedResult is a fused, deduplicated candidate with its final adjusted
// score and 1-based rank.
type RankedResult struct {
	Candidate
	AdjustedScore float64
	Rank          int
}
