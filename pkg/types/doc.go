// Package types defines the shared domain types for document ingestion and
// retrieval: text chunks, extracted images, retrieval candidates, ranked
// results, and answers.
//
// These types are used across the segmenter, retriever, ingestion pipeline,
// and MCP layers. They carry no behavior beyond validation and identity.
package types
