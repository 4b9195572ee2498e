package renderer

import "errors"

// Common errors
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrRenderFailed      = errors.New("document rendering failed")
)

// RawImage is an embedded raster image extracted from a document page.
type RawImage struct {
	Data   []byte
	Format string // "jpeg" is the only format the PDF scanner emits
	Width  int
	Height int
}

// Page is one rendered document page: its raw text plus any embedded images.
type Page struct {
	Number int // 1-based
	Text   string
	Images []RawImage
}

// Renderer extracts raw page text and embedded raster images from a
// paginated document.
type Renderer interface {
	RenderPages(path string) ([]Page, error)
}
