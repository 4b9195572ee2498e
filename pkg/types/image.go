package types

// ImageUnit is an extracted raster image with a derived caption. It belongs to
// exactly one source document and one page. Captions are best-effort: derived
// from nearby page text by pattern match, or a generic fallback.
type ImageUnit struct {
	// Identification
	ImageID     string // globally unique
	PDFFilename string
	PageNumber  int // 1-based
	ImageIndex  int // 0-based within the page

	// Content
	ImagePath string
	Caption   string
	Width     int
	Height    int
}

// Key returns the deduplication identity for this image.
func (u *ImageUnit) Key() string {
	return u.ImageID
}
