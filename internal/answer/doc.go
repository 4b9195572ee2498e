// Package answer turns questions into grounded answers: greeting
// short-circuit, retrieval and fusion, context assembly bounded by a chunk
// budget, and completion through a Generator. Every failure mode degrades to
// a well-formed answer rather than an error.
package answer
