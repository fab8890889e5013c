// Package reader turns an uploaded file into raw text and candidate tables.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"docextract/internal/domain"
	"docextract/internal/port"
)

// ErrOCRUnavailable is returned for images when no OCR engine is configured.
var ErrOCRUnavailable = errors.New("ocr engine not configured")

// Reader implements port.DocumentReader. PDFs are read from their text
// layer and images go through the OCR engine. A PDF without a usable text
// layer is rasterized and OCR'd when an engine is configured.
type Reader struct {
	ocr      port.OCREngine
	runner   Runner
	pdftoppm string
	dpi      int
	maxPages int
}

// Option configures a Reader.
type Option func(*Reader)

// WithRunner replaces the command runner used for rasterizing PDFs.
func WithRunner(runner Runner) Option {
	return func(r *Reader) { r.runner = runner }
}

// WithRasterizer sets the pdftoppm binary, render resolution and page cap.
// Zero values keep the defaults.
func WithRasterizer(command string, dpi, maxPages int) Option {
	return func(r *Reader) {
		if command != "" {
			r.pdftoppm = command
		}
		if dpi > 0 {
			r.dpi = dpi
		}
		if maxPages > 0 {
			r.maxPages = maxPages
		}
	}
}

// New creates a Reader. ocr may be nil, in which case images and scanned
// PDFs cannot be read.
func New(ocr port.OCREngine, opts ...Option) *Reader {
	r := &Reader{
		ocr:      ocr,
		runner:   ExecRunner{},
		pdftoppm: "pdftoppm",
		dpi:      300,
		maxPages: 20,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) Read(ctx context.Context, path string, fileType domain.FileType) (*domain.ExtractedDocument, error) {
	switch {
	case fileType == domain.FileTypePDF:
		return r.readPDF(ctx, path)
	case fileType.IsImage():
		return r.readImage(ctx, path)
	default:
		return nil, domain.WrapStage(domain.StageUpload,
			domain.NewInputError("file", fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, fileType)))
	}
}

func (r *Reader) readPDF(ctx context.Context, path string) (*domain.ExtractedDocument, error) {
	pages, textErr := readPDFPages(ctx, path)
	if textErr == nil {
		doc := &domain.ExtractedDocument{RawText: pagesText(pages), Tables: pageTables(pages)}
		if doc.RawText != "" || r.ocr == nil {
			if doc.RawText == "" {
				slog.WarnContext(ctx, "reader.Read: pdf has no text layer and ocr is disabled", "path", path, "pages", len(pages))
			}
			slog.DebugContext(ctx, "reader.Read: pdf extracted",
				"pages", len(pages), "chars", len(doc.RawText), "tables", len(doc.Tables))
			return doc, nil
		}
		slog.InfoContext(ctx, "reader.Read: pdf has no text layer, rasterizing", "path", path, "pages", len(pages))
	} else if r.ocr == nil {
		return nil, domain.WrapStage(domain.StageOCR, textErr)
	} else {
		slog.WarnContext(ctx, "reader.Read: pdf text layer unreadable, rasterizing", "path", path, "error", textErr)
	}

	text, rendered, err := r.ocrPDF(ctx, path)
	if err != nil {
		return nil, domain.WrapStage(domain.StageOCR, errors.Join(textErr, err))
	}

	doc := &domain.ExtractedDocument{RawText: text, Tables: RowMatchTables(text)}
	slog.DebugContext(ctx, "reader.Read: pdf recognized",
		"pages", rendered, "chars", len(doc.RawText), "tables", len(doc.Tables))
	return doc, nil
}
