// Package pdfdoc wraps the MuPDF binding with the two operations the
// extraction pipeline needs: per-page text extraction for digital PDFs and
// page rasterisation for the OCR path.
package pdfdoc

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

// RenderedPage is one PDF page rasterised to a JPEG bitmap.
type RenderedPage struct {
	Number int
	JPEG   []byte
}

// Reader extracts text and renders pages from raw PDF bytes.
type Reader struct {
	jpegQuality int
}

// NewReader constructs a PDF reader.
func NewReader() *Reader {
	return &Reader{jpegQuality: 90}
}

// ExtractPages returns the embedded text of every page, in page order.
func (r *Reader) ExtractPages(data []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("extract text from page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}

	return pages, nil
}

// RenderPages rasterises every page at the given DPI and encodes it as JPEG.
func (r *Reader) RenderPages(data []byte, dpi int) ([]RenderedPage, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	rendered := make([]RenderedPage, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}

		buf := &bytes.Buffer{}
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: r.jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}

		rendered = append(rendered, RenderedPage{Number: i + 1, JPEG: buf.Bytes()})
	}

	return rendered, nil
}
