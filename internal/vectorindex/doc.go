// Package vectorindex defines the vector index boundary and a Qdrant REST
// implementation.
//
// The engine treats the index as an external collaborator: cosine similarity
// search with a score threshold, point upsert with payload, and collection
// management. Every call is bounded by a per-call timeout; transport failures
// and server errors surface as ErrUnavailable, which callers recover as an
// empty result set rather than failing the whole request.
package vectorindex
