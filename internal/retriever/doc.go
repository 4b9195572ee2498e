// Package retriever implements progressive multi-strategy retrieval against
// the vector index and the fusion step that turns raw candidates into a
// ranked, deduplicated result list.
//
// Retrieval widens in stages: a broad similarity search, a keyword fan-out
// when the broad stage under-produces, a structural-reference fan-out, and a
// near-zero-threshold emergency search that guarantees output whenever the
// index is non-empty. Visual-intent queries also search the image-caption
// collection, and fusion boosts image scores for those queries.
package retriever
