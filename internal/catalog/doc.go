// Package catalog persists ingestion bookkeeping in SQLite: which documents
// have been indexed, their content hashes and counters, and the images
// extracted from them. The catalog is the source of truth for listings and
// statistics; chunk and caption vectors live in the vector index.
//
// Two SQLite drivers are supported via build tags: the default pure Go
// modernc.org/sqlite build needs no C toolchain, and -tags cgo_sqlite selects
// github.com/mattn/go-sqlite3.
package catalog
