package util

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

const pdfMIME = "application/pdf"

// MaxPDFPages bounds how many pages of a scanned document are sent for
// transcription.
const MaxPDFPages = 10

// RasterizePDF renders every page of a PDF scan to a PNG data URI, in page
// order.
func RasterizePDF(data []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if doc.NumPage() > MaxPDFPages {
		return nil, fmt.Errorf("PDF has %d pages (max %d)", doc.NumPage(), MaxPDFPages)
	}

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.Image(n)
		if err != nil {
			return nil, fmt.Errorf("page %d: failed to extract image: %w", n+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("page %d: failed to encode PNG: %w", n+1, err)
		}
		pages = append(pages, EncodeDataURI("image/png", buf.Bytes()))
	}
	return pages, nil
}

// ExpandDocuments replaces every PDF data URI in images with its rendered
// pages and leaves other images untouched, preserving order.
func ExpandDocuments(images []string) ([]string, error) {
	out := make([]string, 0, len(images))
	for i, uri := range images {
		mimeType, data, err := DecodeDataURI(uri)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		if mimeType != pdfMIME {
			out = append(out, uri)
			continue
		}
		pages, err := RasterizePDF(data)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		out = append(out, pages...)
	}
	return out, nil
}
