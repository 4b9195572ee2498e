// Package embedder generates vector embeddings for document chunks, image
// captions, and user queries.
//
// It supports multiple providers (Gemini, OpenAI, a deterministic local
// fallback) behind one interface, with batching, LRU caching by content hash,
// and exponential-backoff retry at the HTTP boundary.
//
// Batch requests are order-preserving: the i-th embedding corresponds to the
// i-th input text. Gemini embeddings truncated below the model's native
// dimension are re-normalized to unit length so cosine similarity against the
// vector index stays in [0,1].
package embedder
