package types

// Source describes one retrieval unit that contributed to an answer.
type Source struct {
	Filename string  `json:"filename"`
	ChunkID  int     `json:"chunk_id"`
	Score    float64 `json:"score"`
	Modality string  `json:"modality"`
	Caption  string  `json:"caption,omitempty"`
}

// Answer is the user-facing result of a question. Every failure path still
// produces a well-formed Answer with an explanatory message, an empty source
// list, and zero confidence.
type Answer struct {
	Text              string   `json:"answer"`
	Sources           []Source `json:"sources"`
	Confidence        float64  `json:"confidence"`
	RetrievedDocs     int      `json:"retrieved_docs_count"`
	ContextChunksUsed int      `json:"context_chunks_used"`
}

// Degraded builds the well-formed answer used on every failure path.
func Degraded(message string) *Answer {
	return &Answer{
		Text:       message,
		Sources:    []Source{},
		Confidence: 0,
	}
}
