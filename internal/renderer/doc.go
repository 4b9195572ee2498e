// Package renderer extracts raw page text and embedded raster images from
// paginated documents.
//
// The PDF implementation reads page text through the pdf library and scans
// the raw file for JPEG image XObjects (DCTDecode streams). Page attribution
// and caption derivation are best-effort: captions are matched positionally
// against figure/table labels in the page text, with a generic fallback when
// no label is found.
package renderer
