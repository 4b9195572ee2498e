// Package ingest runs the document indexing pipeline: render pages, clean
// and segment text, derive image captions, embed everything, upsert into the
// vector index, and record the document in the catalog.
package ingest
