package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingFile         = errors.New("no file uploaded")
	ErrEmptyFilename       = errors.New("invalid file name")
	ErrMissingDocumentType = errors.New("document type not provided")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrUnsupportedFormat   = errors.New("unsupported spreadsheet format")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUnauthorized        = errors.New("unauthorized")
)

// InputError reports a caller or collaborator validation failure. It is
// never retried.
type InputError struct {
	Field string
	Err   error
}

// NewInputError creates an InputError for the given request field.
func NewInputError(field string, err error) *InputError {
	return &InputError{Field: field, Err: err}
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %q: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// EncodingError reports a table cell that cannot be represented as text.
type EncodingError struct {
	Table int
	Row   int
	Col   int
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding table %d (row %d, col %d): %v", e.Table, e.Row, e.Col, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failed call to a text-generation service.
type GenerationError struct {
	Kind       GenerationErrorKind
	Provider   string
	StatusCode int
	RetryAfter time.Duration // set for GenerationRateLimited
	Err        error
}

// NewGenerationError creates a GenerationError of the given kind.
func NewGenerationError(kind GenerationErrorKind, provider string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Provider: provider, Err: err}
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s generation failed (%s, status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s generation failed (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// SerializationError reports a failure of the spreadsheet encoder.
type SerializationError struct {
	Format SpreadsheetFormat
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serializing %s spreadsheet: %v", e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

// WrapStage returns err tagged with stage, or nil when err is nil.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
