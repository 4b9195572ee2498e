// Package query analyzes free-text questions before retrieval.
//
// It provides three lexical, heuristic operations: keyword extraction
// (stop-word filtered), structural-reference extraction (every number in the
// query combined with a vocabulary of structural-unit words, deliberately
// over-generating for recall), and query classification (greeting and
// visual-intent flags).
//
// All functions are pure and operate over immutable vocabulary sets, so
// vocabularies can be tested and extended independently of control flow.
package query
