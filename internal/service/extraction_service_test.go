package service_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/port"
	"docextract/internal/service"
	"docextract/internal/spreadsheet"
	"docextract/mocks"
)

// pdfContent returns minimal bytes detected as application/pdf.
func pdfContent() []byte {
	return []byte("%PDF-1.4 test content that is at least a few bytes long for detection purposes")
}

// pngContent returns minimal valid PNG bytes (magic bytes).
func pngContent() []byte {
	header := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	return append(header, bytes.Repeat([]byte{0x00}, 100)...)
}

type fixture struct {
	reader    *mocks.MockDocumentReader
	generator *mocks.MockTextGenerator
	storage   *mocks.MockObjectStorage
	uploadDir string
	timeout   time.Duration
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		reader:    new(mocks.MockDocumentReader),
		generator: new(mocks.MockTextGenerator),
		storage:   new(mocks.MockObjectStorage),
		uploadDir: t.TempDir(),
	}
}

func (f *fixture) service(withStorage bool) service.ExtractionService {
	uploadCfg := &config.UploadConfig{Dir: f.uploadDir, MaxFileSizeMB: 1}
	s3Cfg := &config.S3Config{PresignExpiry: 600}
	var storage port.ObjectStorage
	if withStorage {
		storage = f.storage
	}
	return service.NewExtractionService(f.reader, f.generator, storage, uploadCfg, s3Cfg, f.timeout)
}

func (f *fixture) assertUploadDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func pdfInput() service.ExtractInput {
	content := pdfContent()
	return service.ExtractInput{
		File:         bytes.NewReader(content),
		Filename:     "nota.pdf",
		Size:         int64(len(content)),
		DocumentType: "nota fiscal",
		Format:       domain.SpreadsheetFormatXLSX,
	}
}

func TestExtract_Success(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	doc := &domain.ExtractedDocument{
		RawText: "NOTA FISCAL Acme",
		Tables:  []domain.Table{domain.NewRowMatchesTable([][3]string{{"Item", "Qtd", "Valor"}})},
	}
	f.reader.On("Read", mock.Anything, mock.AnythingOfType("string"), domain.FileTypePDF).
		Run(func(args mock.Arguments) {
			path := args.String(1)
			saved, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, pdfContent(), saved)
			assert.True(t, strings.HasSuffix(path, "_nota.pdf"))
		}).
		Return(doc, nil)
	f.generator.On("Generate", mock.Anything, mock.MatchedBy(func(in port.GenerateInput) bool {
		return in.Prompt.DocumentType == "nota fiscal" &&
			strings.Contains(in.Prompt.Body, "NOTA FISCAL Acme") &&
			strings.Contains(in.Prompt.Body, "Item\tQtd\tValor")
	})).Return(&port.GenerateOutput{
		Text:     "Nome = Acme\nValor = 100\n\nNome = Beta\n",
		Model:    "gpt-4o-mini",
		Provider: "openai",
	}, nil)

	result, err := svc.Extract(context.Background(), pdfInput())

	require.NoError(t, err)
	assert.Equal(t, "Nome = Acme\nValor = 100\n\nNome = Beta\n", result.RawOutput)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "openai", result.Provider)
	assert.Empty(t, result.DownloadURL)

	tbl, err := spreadsheet.ReadXLSX(bytes.NewReader(result.Spreadsheet.Data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Nome", "Valor"}, tbl.Columns)
	assert.Equal(t, [][]string{{"Acme", "100"}, {"Beta", ""}}, tbl.Rows)

	f.assertUploadDirEmpty(t)
	f.reader.AssertExpectations(t)
	f.generator.AssertExpectations(t)
}

func TestExtract_DefaultsToXLSX(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePNG).Return(&domain.ExtractedDocument{}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return(&port.GenerateOutput{Text: "A = 1"}, nil)

	content := pngContent()
	result, err := svc.Extract(context.Background(), service.ExtractInput{
		File:         bytes.NewReader(content),
		Filename:     "SCAN.PNG",
		DocumentType: "recibo",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SpreadsheetFormatXLSX, result.Spreadsheet.Format)
}

func TestExtract_EmptyModelOutput(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return(&port.GenerateOutput{Text: "\n\n"}, nil)

	input := pdfInput()
	input.Format = domain.SpreadsheetFormatCSV
	result, err := svc.Extract(context.Background(), input)

	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Spreadsheet.Columns)
	assert.Equal(t, spreadsheet.BOM, result.Spreadsheet.Data)
}

func TestExtract_InputErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *service.ExtractInput)
		target error
	}{
		{"missing file", func(in *service.ExtractInput) { in.File = nil }, domain.ErrMissingFile},
		{"empty filename", func(in *service.ExtractInput) { in.Filename = "" }, domain.ErrEmptyFilename},
		{"missing document type", func(in *service.ExtractInput) { in.DocumentType = "  " }, domain.ErrMissingDocumentType},
		{"unsupported extension", func(in *service.ExtractInput) { in.Filename = "nota.docx" }, domain.ErrUnsupportedFileType},
		{"unsupported format", func(in *service.ExtractInput) { in.Format = "ods" }, domain.ErrUnsupportedFormat},
		{"declared too large", func(in *service.ExtractInput) { in.Size = 2 * 1024 * 1024 }, domain.ErrFileTooLarge},
		{"content mismatch", func(in *service.ExtractInput) {
			in.File = strings.NewReader("plain text pretending to be a pdf")
		}, domain.ErrUnsupportedFileType},
		{"png bytes behind pdf extension", func(in *service.ExtractInput) {
			in.File = bytes.NewReader(pngContent())
		}, domain.ErrUnsupportedFileType},
		{"pdf bytes behind jpeg extension", func(in *service.ExtractInput) {
			in.Filename = "scan.jpeg"
		}, domain.ErrUnsupportedFileType},
		{"actual too large", func(in *service.ExtractInput) {
			in.File = bytes.NewReader(append(pdfContent(), bytes.Repeat([]byte("x"), 1024*1024)...))
			in.Size = 0
		}, domain.ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := f.service(false)

			input := pdfInput()
			tt.mutate(&input)

			result, err := svc.Extract(context.Background(), input)

			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
			var inErr *domain.InputError
			assert.True(t, errors.As(err, &inErr))
			var stageErr *domain.StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, domain.StageUpload, stageErr.Stage)
			f.reader.AssertNotCalled(t, "Read", mock.Anything, mock.Anything, mock.Anything)
			f.assertUploadDirEmpty(t)
		})
	}
}

func TestExtract_ReaderFailure_CleansUp(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(nil, errors.New("corrupt"))

	_, err := svc.Extract(context.Background(), pdfInput())

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageOCR, stageErr.Stage)
	f.assertUploadDirEmpty(t)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestExtract_ReaderStageIsKept(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).
		Return(nil, domain.WrapStage(domain.StageTables, errors.New("bad grid")))

	_, err := svc.Extract(context.Background(), pdfInput())

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageTables, stageErr.Stage)
}

func TestExtract_SerializeFailure(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	bad := domain.NewStructuredTable(nil, [][]string{{"ok", "\xff"}})
	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).
		Return(&domain.ExtractedDocument{Tables: []domain.Table{bad}}, nil)

	_, err := svc.Extract(context.Background(), pdfInput())

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageSerialize, stageErr.Stage)
	var encErr *domain.EncodingError
	assert.True(t, errors.As(err, &encErr))
	f.assertUploadDirEmpty(t)
}

func TestExtract_GenerationFailure_CleansUp(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(nil, domain.NewGenerationError(domain.GenerationTimeout, "openai", context.DeadlineExceeded))

	result, err := svc.Extract(context.Background(), pdfInput())

	assert.Nil(t, result)
	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageGenerate, stageErr.Stage)
	var genErr *domain.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, domain.GenerationTimeout, genErr.Kind)
	f.assertUploadDirEmpty(t)
}

func TestExtract_TruncatedOutputStillSucceeds(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(&port.GenerateOutput{Text: "Nome = Acme\nVal", Truncated: true, FinishReason: "length"}, nil)

	result, err := svc.Extract(context.Background(), pdfInput())

	require.NoError(t, err)
	assert.True(t, result.Truncated)
	require.Len(t, result.Records, 1)
	v, ok := result.Records[0].Get("Val")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestExtract_ArchivesArtifact(t *testing.T) {
	f := newFixture(t)
	svc := f.service(true)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return(&port.GenerateOutput{Text: "A = 1"}, nil)

	var storedKey string
	f.storage.On("Put", mock.Anything, mock.MatchedBy(func(in port.PutInput) bool {
		return strings.HasPrefix(in.Key, "artifacts/") && strings.HasSuffix(in.Key, ".xlsx") &&
			in.ContentType == domain.SpreadsheetContentTypes[domain.SpreadsheetFormatXLSX] && in.Size > 0
	})).Run(func(args mock.Arguments) {
		storedKey = args.Get(1).(port.PutInput).Key
	}).Return(&port.PutOutput{Location: "s3://bucket/key"}, nil)
	f.storage.On("PresignGet", mock.Anything, mock.AnythingOfType("string"), 600*time.Second).
		Return("https://signed.example/artifact", nil)

	result, err := svc.Extract(context.Background(), pdfInput())

	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/artifact", result.DownloadURL)
	f.storage.AssertCalled(t, "PresignGet", mock.Anything, storedKey, 600*time.Second)
}

func TestExtract_ArchiveFailure(t *testing.T) {
	t.Run("upload fails", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(true)

		f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
		f.generator.On("Generate", mock.Anything, mock.Anything).Return(&port.GenerateOutput{Text: "A = 1"}, nil)
		f.storage.On("Put", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

		_, err := svc.Extract(context.Background(), pdfInput())

		var stageErr *domain.StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, domain.StageArchive, stageErr.Stage)
		f.storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		f.assertUploadDirEmpty(t)
	})

	t.Run("presign fails removes stored artifact", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(true)

		f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
		f.generator.On("Generate", mock.Anything, mock.Anything).Return(&port.GenerateOutput{Text: "A = 1"}, nil)

		var storedKey string
		f.storage.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			storedKey = args.Get(1).(port.PutInput).Key
		}).Return(&port.PutOutput{Location: "s3://bucket/key"}, nil)
		f.storage.On("PresignGet", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("no credentials"))
		f.storage.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)

		result, err := svc.Extract(context.Background(), pdfInput())

		assert.Nil(t, result)
		var stageErr *domain.StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, domain.StageArchive, stageErr.Stage)
		require.NotEmpty(t, storedKey)
		f.storage.AssertCalled(t, "Delete", mock.Anything, storedKey)
		f.assertUploadDirEmpty(t)
	})

	t.Run("cleanup failure keeps presign error", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(true)

		f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
		f.generator.On("Generate", mock.Anything, mock.Anything).Return(&port.GenerateOutput{Text: "A = 1"}, nil)
		f.storage.On("Put", mock.Anything, mock.Anything).Return(&port.PutOutput{}, nil)
		f.storage.On("PresignGet", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("no credentials"))
		f.storage.On("Delete", mock.Anything, mock.Anything).Return(errors.New("access denied"))

		_, err := svc.Extract(context.Background(), pdfInput())

		assert.ErrorContains(t, err, "presigning artifact")
		f.storage.AssertNumberOfCalls(t, "Delete", 1)
	})
}

func TestExtract_AppliesRequestDeadline(t *testing.T) {
	f := newFixture(t)
	f.timeout = 2 * time.Second
	svc := f.service(false)

	withinBudget := mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 2*time.Second
	})
	f.reader.On("Read", withinBudget, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
	f.generator.On("Generate", withinBudget, mock.Anything).Return(&port.GenerateOutput{Text: "A = 1"}, nil)

	_, err := svc.Extract(context.Background(), pdfInput())

	require.NoError(t, err)
	f.reader.AssertExpectations(t)
	f.generator.AssertExpectations(t)
}

func TestExtract_DeadlineStopsSlowGeneration(t *testing.T) {
	f := newFixture(t)
	f.timeout = 50 * time.Millisecond
	svc := f.service(false)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, domain.NewGenerationError(domain.GenerationTimeout, "openai", context.DeadlineExceeded))

	start := time.Now()
	_, err := svc.Extract(context.Background(), pdfInput())

	assert.Less(t, time.Since(start), time.Second)
	var genErr *domain.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, domain.GenerationTimeout, genErr.Kind)
	f.assertUploadDirEmpty(t)
}

func TestExtract_NoDeadlineWhenTimeoutZero(t *testing.T) {
	f := newFixture(t)
	svc := f.service(false)

	f.reader.On("Read", mock.Anything, mock.Anything, domain.FileTypePDF).Return(&domain.ExtractedDocument{}, nil)
	f.generator.On("Generate", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return !ok
	}), mock.Anything).Return(&port.GenerateOutput{Text: "A = 1"}, nil)

	_, err := svc.Extract(context.Background(), pdfInput())

	require.NoError(t, err)
}
