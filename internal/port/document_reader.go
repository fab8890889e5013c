package port

import (
	"context"

	"docextract/internal/domain"
)

// DocumentReader extracts raw text and tables from a file on disk.
type DocumentReader interface {
	Read(ctx context.Context, path string, fileType domain.FileType) (*domain.ExtractedDocument, error)
}

// OCREngine recognizes text in image data.
type OCREngine interface {
	RecognizeImage(imageData []byte) (string, error)
}
