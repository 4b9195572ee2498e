package renderer

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	widthAttr  = regexp.MustCompile(`/Width\s+(\d+)`)
	heightAttr = regexp.MustCompile(`/Height\s+(\d+)`)
)

// PDFRenderer extracts per-page text via the pdf library and embedded JPEG
// images via a best-effort scan for DCTDecode image XObjects in the raw file.
type PDFRenderer struct{}

// NewPDF creates a PDF renderer.
func NewPDF() *PDFRenderer {
	return &PDFRenderer{}
}

// RenderPages extracts text for every page and attributes extracted images to
// pages by stream order. Image attribution is best-effort: the raw scan
// cannot recover exact page membership, and stream order approximates it.
func (p *PDFRenderer) RenderPages(path string) ([]Page, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRenderFailed, path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("%w: %s has no pages", ErrRenderFailed, path)
	}

	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pg := reader.Page(i)
		if pg.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}

		text, err := pg.GetPlainText(nil)
		if err != nil {
			// A page that fails text extraction still counts; images and
			// neighboring pages may carry the content.
			text = ""
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return pages, nil
	}
	images := extractJPEGImages(raw)
	for i, img := range images {
		pageIdx := i
		if pageIdx >= len(pages) {
			pageIdx = len(pages) - 1
		}
		pages[pageIdx].Images = append(pages[pageIdx].Images, img)
	}

	return pages, nil
}

// extractJPEGImages scans raw PDF bytes for image XObjects compressed with
// DCTDecode (plain JPEG) and pulls out their stream bytes. Images using other
// filters (FlateDecode, JPXDecode) are skipped.
func extractJPEGImages(raw []byte) []RawImage {
	var images []RawImage

	rest := raw
	for {
		dictStart := bytes.Index(rest, []byte("<<"))
		if dictStart < 0 {
			break
		}
		streamKw := bytes.Index(rest[dictStart:], []byte("stream"))
		if streamKw < 0 {
			break
		}

		dict := rest[dictStart : dictStart+streamKw]
		body := rest[dictStart+streamKw:]

		if bytes.Contains(dict, []byte("/Subtype/Image")) || bytes.Contains(dict, []byte("/Subtype /Image")) {
			if bytes.Contains(dict, []byte("DCTDecode")) {
				if img, ok := extractStream(dict, body); ok {
					images = append(images, img)
				}
			}
		}

		// Skip past the whole stream body so "<<" sequences inside binary
		// data are not mistaken for the next dictionary.
		if end := bytes.Index(body, []byte("endstream")); end >= 0 {
			rest = body[end+len("endstream"):]
		} else {
			rest = body[len("stream"):]
		}
	}

	return images
}

func extractStream(dict, body []byte) (RawImage, bool) {
	// Stream data starts after "stream" and an EOL
	data := body[len("stream"):]
	data = bytes.TrimLeft(data, "\r\n")

	end := bytes.Index(data, []byte("endstream"))
	if end < 0 {
		return RawImage{}, false
	}
	data = bytes.TrimRight(data[:end], "\r\n")

	img := RawImage{
		Data:   append([]byte(nil), data...),
		Format: "jpeg",
	}

	if m := widthAttr.FindSubmatch(dict); m != nil {
		img.Width, _ = strconv.Atoi(string(m[1]))
	}
	if m := heightAttr.FindSubmatch(dict); m != nil {
		img.Height, _ = strconv.Atoi(string(m[1]))
	}

	// The dict is the source of truth for dimensions; decode the JPEG header
	// only when the dict did not carry them.
	if img.Width == 0 || img.Height == 0 {
		if cfg, err := jpeg.DecodeConfig(bytes.NewReader(img.Data)); err == nil {
			img.Width = cfg.Width
			img.Height = cfg.Height
		}
	}

	return img, true
}
