// Package tesseract provides port.OCREngine on top of the Tesseract engine
// via gosseract. It requires libtesseract at build and run time. On
// Debian/Ubuntu:
//
//	apt-get install libtesseract-dev tesseract-ocr-por
package tesseract

import (
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Engine wraps one Tesseract client. Calls are serialized because the
// underlying client is not safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates an Engine for the given language(s), e.g. "por" or "por+eng".
// The engine should be closed when no longer needed to release resources.
func New(language string) (*Engine, error) {
	client := gosseract.NewClient()
	if language != "" {
		if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("setting ocr language %q: %w", language, err)
		}
	}
	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// RecognizeImage performs OCR on image data (PNG, JPEG).
// Returns the recognized text with leading/trailing whitespace trimmed.
func (e *Engine) RecognizeImage(imageData []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("setting image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}

	return strings.TrimSpace(text), nil
}
