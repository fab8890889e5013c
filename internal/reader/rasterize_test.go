package reader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docextract/internal/domain"
	"docextract/internal/reader"
	"docextract/mocks"
)

// fakeRunner stands in for pdftoppm by writing the given pages next to the
// output prefix it receives.
type fakeRunner struct {
	pages  map[string][]byte
	err    error
	stderr string

	name   string
	args   []string
	prefix string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	f.prefix = args[len(args)-1]
	if f.err != nil {
		return nil, []byte(f.stderr), f.err
	}
	for suffix, data := range f.pages {
		if err := os.WriteFile(f.prefix+suffix, data, 0o600); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func assertRemoved(t *testing.T, runner *fakeRunner) {
	t.Helper()
	require.NotEmpty(t, runner.prefix)
	_, err := os.Stat(filepath.Dir(runner.prefix))
	assert.True(t, os.IsNotExist(err), "page dir still exists: %v", err)
}

func TestRead_ScannedPDFFallsBackToOCR(t *testing.T) {
	path := writeTemp(t, "scan.pdf", []byte("%PDF-1.4 scanned, no text layer"))
	runner := &fakeRunner{pages: map[string][]byte{
		"-1.png":  []byte("page one"),
		"-2.png":  []byte("page two"),
		"-10.png": []byte("page ten"),
	}}

	ocr := new(mocks.MockOCREngine)
	ocr.On("RecognizeImage", []byte("page one")).Return("Produto Qtd Valor", nil)
	ocr.On("RecognizeImage", []byte("page two")).Return("Caneta 2 3,00", nil)
	ocr.On("RecognizeImage", []byte("page ten")).Return("Total", nil)

	doc, err := reader.New(ocr,
		reader.WithRunner(runner),
		reader.WithRasterizer("/usr/bin/pdftoppm", 150, 0),
	).Read(context.Background(), path, domain.FileTypePDF)

	require.NoError(t, err)
	assert.Equal(t, "Produto Qtd Valor\nCaneta 2 3,00\nTotal", doc.RawText)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, [][3]string{{"Produto", "Qtd", "Valor"}, {"Caneta", "2", "3,00"}}, doc.Tables[0].RowMatches)
	assert.Equal(t, "/usr/bin/pdftoppm", runner.name)
	assert.Equal(t, []string{"-r", "150", "-png", path, runner.prefix}, runner.args)
	assertRemoved(t, runner)
	ocr.AssertExpectations(t)
}

func TestRead_ScannedPDFRespectsPageLimit(t *testing.T) {
	path := writeTemp(t, "scan.pdf", []byte("%PDF-1.4"))
	runner := &fakeRunner{pages: map[string][]byte{
		"-1.png": []byte("one"),
		"-2.png": []byte("two"),
		"-3.png": []byte("three"),
	}}

	ocr := new(mocks.MockOCREngine)
	ocr.On("RecognizeImage", mock.Anything).Return("x", nil)

	doc, err := reader.New(ocr, reader.WithRunner(runner), reader.WithRasterizer("", 0, 2)).
		Read(context.Background(), path, domain.FileTypePDF)

	require.NoError(t, err)
	assert.Equal(t, "x\nx", doc.RawText)
	ocr.AssertNumberOfCalls(t, "RecognizeImage", 2)
	assert.Equal(t, "pdftoppm", runner.name)
	assert.Equal(t, "300", runner.args[1])
}

func TestRead_ScannedPDFSkipsFailedPage(t *testing.T) {
	path := writeTemp(t, "scan.pdf", []byte("%PDF-1.4"))
	runner := &fakeRunner{pages: map[string][]byte{
		"-1.png": []byte("blurry"),
		"-2.png": []byte("clear"),
	}}

	ocr := new(mocks.MockOCREngine)
	ocr.On("RecognizeImage", []byte("blurry")).Return("", errors.New("tesseract crashed"))
	ocr.On("RecognizeImage", []byte("clear")).Return("Nome Acme Ltda", nil)

	doc, err := reader.New(ocr, reader.WithRunner(runner)).Read(context.Background(), path, domain.FileTypePDF)

	require.NoError(t, err)
	assert.Equal(t, "Nome Acme Ltda", doc.RawText)
	assertRemoved(t, runner)
}

func TestRead_ScannedPDFFailures(t *testing.T) {
	tests := []struct {
		name    string
		runner  *fakeRunner
		ocrErr  error
		message string
	}{
		{
			name:    "rasterizer fails",
			runner:  &fakeRunner{err: errors.New("exit status 1"), stderr: "Syntax Error: Couldn't read xref table"},
			message: "xref table",
		},
		{
			name:    "no pages rendered",
			runner:  &fakeRunner{},
			message: reader.ErrNoPagesRendered.Error(),
		},
		{
			name:    "every page fails",
			runner:  &fakeRunner{pages: map[string][]byte{"-1.png": []byte("a")}},
			ocrErr:  errors.New("tesseract crashed"),
			message: "tesseract crashed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "scan.pdf", []byte("not really a pdf"))
			ocr := new(mocks.MockOCREngine)
			ocr.On("RecognizeImage", mock.Anything).Return("", tt.ocrErr)

			_, err := reader.New(ocr, reader.WithRunner(tt.runner)).Read(context.Background(), path, domain.FileTypePDF)

			var stageErr *domain.StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, domain.StageOCR, stageErr.Stage)
			assert.Contains(t, err.Error(), tt.message)
			assertRemoved(t, tt.runner)
		})
	}
}
