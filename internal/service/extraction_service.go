package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/port"
	"docextract/internal/prompt"
	"docextract/internal/record"
	"docextract/internal/spreadsheet"
	"docextract/internal/table"
)

// ExtractInput is the DTO for one extraction request.
type ExtractInput struct {
	File         io.Reader
	Filename     string
	Size         int64 // declared size; 0 if unknown
	DocumentType string
	Format       domain.SpreadsheetFormat
}

// ExtractionService defines the document extraction contract.
type ExtractionService interface {
	Extract(ctx context.Context, input ExtractInput) (*domain.ExtractionResult, error)
}

type extractionService struct {
	reader    port.DocumentReader
	generator port.TextGenerator
	storage   port.ObjectStorage
	uploadCfg *config.UploadConfig
	s3Cfg     *config.S3Config
	timeout   time.Duration
	now       func() time.Time
}

// NewExtractionService creates a new ExtractionService implementation.
// storage may be nil, which disables the artifact archive. timeout bounds
// everything after the upload is saved; zero means no deadline.
func NewExtractionService(
	reader port.DocumentReader,
	generator port.TextGenerator,
	storage port.ObjectStorage,
	uploadCfg *config.UploadConfig,
	s3Cfg *config.S3Config,
	timeout time.Duration,
) ExtractionService {
	return &extractionService{
		reader:    reader,
		generator: generator,
		storage:   storage,
		uploadCfg: uploadCfg,
		s3Cfg:     s3Cfg,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (s *extractionService) Extract(ctx context.Context, input ExtractInput) (*domain.ExtractionResult, error) {
	if input.Format == "" {
		input.Format = domain.SpreadsheetFormatXLSX
	}
	fileType, err := s.validate(input)
	if err != nil {
		return nil, domain.WrapStage(domain.StageUpload, err)
	}

	path, err := s.saveUpload(input, fileType)
	if err != nil {
		return nil, domain.WrapStage(domain.StageUpload, err)
	}
	defer s.cleanup(ctx, path)

	slog.InfoContext(ctx, "extractionService.Extract: processing upload",
		"filename", input.Filename, "file_type", fileType, "document_type", input.DocumentType, "format", input.Format)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.run(ctx, path, fileType, input.DocumentType, input.Format)
}

// validate checks the request fields, extension and size. The content is
// sniffed later while the upload is saved.
func (s *extractionService) validate(input ExtractInput) (domain.FileType, error) {
	if input.File == nil {
		return "", domain.NewInputError("file", domain.ErrMissingFile)
	}
	if strings.TrimSpace(input.Filename) == "" {
		return "", domain.NewInputError("file", domain.ErrEmptyFilename)
	}
	if strings.TrimSpace(input.DocumentType) == "" {
		return "", domain.NewInputError("document_type", domain.ErrMissingDocumentType)
	}
	if _, ok := domain.SpreadsheetContentTypes[input.Format]; !ok {
		return "", domain.NewInputError("format", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, input.Format))
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", domain.NewInputError("file", domain.ErrUnsupportedFileType)
	}

	if input.Size > s.uploadCfg.MaxBytes() {
		return "", domain.NewInputError("file", domain.ErrFileTooLarge)
	}
	return fileType, nil
}

// saveUpload writes the upload under the upload dir with a uuid-prefixed
// name after checking its magic bytes against the extension.
func (s *extractionService) saveUpload(input ExtractInput, fileType domain.FileType) (string, error) {
	// Read first 512 bytes for magic-byte content type detection
	head := make([]byte, 512)
	n, err := io.ReadFull(input.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading file header: %w", err)
	}
	head = head[:n]
	sniffed := http.DetectContentType(head)
	detected, ok := domain.AllowedContentTypes[sniffed]
	if !ok {
		return "", domain.NewInputError("file", domain.ErrUnsupportedFileType)
	}
	if detected != fileType {
		return "", domain.NewInputError("file",
			fmt.Errorf("%w: content is %s but extension says %s", domain.ErrUnsupportedFileType, sniffed, fileType))
	}

	if err := os.MkdirAll(s.uploadCfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	name := uuid.New().String() + "_" + filepath.Base(input.Filename)
	path := filepath.Join(s.uploadCfg.Dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}

	limit := s.uploadCfg.MaxBytes()
	written, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), input.File), limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > limit {
		err = domain.NewInputError("file", domain.ErrFileTooLarge)
	}
	if err != nil {
		_ = os.Remove(path)
		var inErr *domain.InputError
		if errors.As(err, &inErr) {
			return "", err
		}
		return "", fmt.Errorf("saving upload: %w", err)
	}

	slog.Debug("extractionService.saveUpload: file saved", "path", path, "bytes", written)
	return path, nil
}

func (s *extractionService) cleanup(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil {
		slog.ErrorContext(ctx, "extractionService.cleanup: failed to remove upload", "path", path, "error", err)
		return
	}
	slog.DebugContext(ctx, "extractionService.cleanup: upload removed", "path", path)
}

func (s *extractionService) run(ctx context.Context, path string, fileType domain.FileType, documentType string, format domain.SpreadsheetFormat) (*domain.ExtractionResult, error) {
	doc, err := s.reader.Read(ctx, path, fileType)
	if err != nil {
		var stageErr *domain.StageError
		if errors.As(err, &stageErr) {
			return nil, err
		}
		return nil, domain.WrapStage(domain.StageOCR, err)
	}

	tablesText, err := table.Serialize(doc.Tables)
	if err != nil {
		return nil, domain.WrapStage(domain.StageSerialize, err)
	}

	p := prompt.Build(doc.RawText, tablesText, documentType)

	start := s.now()
	out, err := s.generator.Generate(ctx, port.GenerateInput{Prompt: p})
	if err != nil {
		slog.ErrorContext(ctx, "extractionService.run: generation failed", "error", err)
		return nil, domain.WrapStage(domain.StageGenerate, err)
	}
	if out.Truncated {
		slog.WarnContext(ctx, "extractionService.run: model output truncated",
			"provider", out.Provider, "model", out.Model)
	}

	records := record.Parse(out.Text)
	stats := record.Stats(out.Text)
	slog.InfoContext(ctx, "extractionService.run: model output parsed",
		"provider", out.Provider, "model", out.Model, "elapsed", s.now().Sub(start).String(),
		"lines", stats.Lines, "pairs", stats.Pairs, "bare_labels", stats.BareLabels, "records", len(records))

	art, err := spreadsheet.Emit(records, format)
	if err != nil {
		return nil, domain.WrapStage(domain.StageSpreadsheet, err)
	}

	result := &domain.ExtractionResult{
		RawOutput:   out.Text,
		Records:     records,
		Spreadsheet: art,
		Model:       out.Model,
		Provider:    out.Provider,
		Truncated:   out.Truncated,
	}

	if s.storage != nil {
		url, err := s.archive(ctx, art)
		if err != nil {
			return nil, domain.WrapStage(domain.StageArchive, err)
		}
		result.DownloadURL = url
	}

	return result, nil
}

// archive stores the artifact and returns a presigned download URL.
func (s *extractionService) archive(ctx context.Context, art *domain.SpreadsheetArtifact) (string, error) {
	now := s.now().UTC()
	key := fmt.Sprintf("artifacts/%04d/%02d/%s.%s", now.Year(), int(now.Month()), uuid.New(), art.Extension())

	if _, err := s.storage.Put(ctx, port.PutInput{
		Key:         key,
		Body:        bytes.NewReader(art.Data),
		ContentType: art.ContentType,
		Size:        int64(len(art.Data)),
	}); err != nil {
		return "", fmt.Errorf("uploading artifact: %w", err)
	}

	expiry := time.Duration(s.s3Cfg.PresignExpiry) * time.Second
	if expiry <= 0 {
		expiry = time.Hour
	}
	url, err := s.storage.PresignGet(ctx, key, expiry)
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			slog.ErrorContext(ctx, "extractionService.archive: failed to delete orphaned artifact", "key", key, "error", delErr)
		}
		return "", fmt.Errorf("presigning artifact: %w", err)
	}

	slog.InfoContext(ctx, "extractionService.archive: artifact stored", "key", key, "bytes", len(art.Data))
	return url, nil
}
