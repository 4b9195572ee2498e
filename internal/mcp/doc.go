// Package mcp implements the Model Context Protocol (MCP) server for the
// document question-answering engine.
//
// The server exposes six tools over JSON-RPC 2.0 on stdio:
//   - ingest_document: index a PDF file or a directory of PDFs
//   - ask_question: answer a natural-language question with cited sources
//   - search_documents: ranked retrieval without answer generation
//   - collection_stats: document/chunk/image counts and index status
//   - list_documents: every ingested document with its counters
//   - reset_collections: destructive wipe, gated behind confirm=true
//
// stdout is reserved for the protocol; all logging goes to stderr.
//
// Tool failures are returned as JSON-RPC errors with structured data:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid path",
//	    "data": {"param": "path", "reason": "path does not exist"}
//	  }
//	}
//
// Error codes:
//   - -32602: invalid params (missing/invalid arguments)
//   - -32603: internal error (catalog, filesystem, encoding)
//   - -32001: vector index unavailable
//   - -32004: empty query or question
//
// ask_question is the exception: retrieval and generation failures degrade to
// a well-formed answer payload instead of a protocol error, so conversational
// clients always get something to show.
package mcp
