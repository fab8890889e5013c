package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docextract/internal/domain"
)

// MockDocumentReader is a mock implementation of port.DocumentReader.
type MockDocumentReader struct {
	mock.Mock
}

func (m *MockDocumentReader) Read(ctx context.Context, path string, fileType domain.FileType) (*domain.ExtractedDocument, error) {
	args := m.Called(ctx, path, fileType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedDocument), args.Error(1)
}

// MockOCREngine is a mock implementation of port.OCREngine.
type MockOCREngine struct {
	mock.Mock
}

func (m *MockOCREngine) RecognizeImage(imageData []byte) (string, error) {
	args := m.Called(imageData)
	return args.String(0), args.Error(1)
}
