// Package segmenter splits cleaned document text into size-bounded,
// boundary-respecting chunks for indexing.
//
// Text is divided into sections at blank-line boundaries, the smallest unit
// that is never split further. Sections are accumulated greedily into chunks
// under a configurable word budget; a single section that alone exceeds the
// budget is emitted intact as one oversized chunk, because structural
// integrity (never splitting inside a list, table, or code block) takes
// priority over strict size bounding.
//
// Each chunk carries structural flags (code, list, table) derived by pattern
// match over its final text, and a 0-based chunk ID in insertion order.
package segmenter
