package handler

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docextract/internal/domain"
	"docextract/internal/service"
	"docextract/internal/spreadsheet"
)

// ExtractionHandler handles document upload and extraction endpoints.
type ExtractionHandler struct {
	extractionService service.ExtractionService
	now               func() time.Time
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(extractionService service.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{extractionService: extractionService, now: time.Now}
}

// ExtractResponse is the JSON body returned by a successful extraction.
// CamposImportantes and Planilha repeat ExtractedFields and Spreadsheet
// under the keys existing /upload clients read.
type ExtractResponse struct {
	ExtractedFields   string          `json:"extracted_fields"`
	Spreadsheet       string          `json:"spreadsheet"`
	CamposImportantes string          `json:"campos_importantes"`
	Planilha          string          `json:"planilha"`
	Format            string          `json:"format"`
	Filename          string          `json:"filename"`
	Records           []domain.Record `json:"records"`
	Provider          string          `json:"provider,omitempty"`
	Model             string          `json:"model,omitempty"`
	Truncated         bool            `json:"truncated"`
	DownloadURL       string          `json:"download_url,omitempty"`
}

// Upload handles POST /upload and POST /api/v1/extract
// @Summary Extract fields from a document
// @Description Reads a PDF or image, extracts the fields of the given document type and returns them with a base64 spreadsheet
// @Tags extraction
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document (PDF, JPG, JPEG or PNG)"
// @Param document_type formData string true "Document type label (alias: tipo_documento)"
// @Param format formData string false "Spreadsheet format: xlsx (default) or csv"
// @Success 200 {object} ExtractResponse "Extracted fields and spreadsheet"
// @Failure 400 {object} ErrorResponse "Missing file, document type or unsupported type"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 413 {object} ErrorResponse "File too large"
// @Failure 502 {object} ErrorResponse "Extraction service failed"
// @Failure 500 {object} ErrorResponse "Internal failure"
// @Security BearerAuth
// @Router /extract [post]
func (h *ExtractionHandler) Upload(c *gin.Context) {
	input, closeFile, err := h.bindInput(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer closeFile()

	result, err := h.extractionService.Extract(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	records := result.Records
	if records == nil {
		records = []domain.Record{}
	}
	art := result.Spreadsheet
	encoded := base64.StdEncoding.EncodeToString(art.Data)
	c.JSON(http.StatusOK, ExtractResponse{
		ExtractedFields:   result.RawOutput,
		Spreadsheet:       encoded,
		CamposImportantes: result.RawOutput,
		Planilha:          encoded,
		Format:            string(art.Format),
		Filename:          spreadsheet.BuildFilename(input.DocumentType, art.Format, h.now()),
		Records:           records,
		Provider:          result.Provider,
		Model:             result.Model,
		Truncated:         result.Truncated,
		DownloadURL:       result.DownloadURL,
	})
}

// Download handles POST /api/v1/extract/download
// @Summary Extract fields and download the spreadsheet
// @Description Same inputs as /extract; responds with the spreadsheet file as an attachment
// @Tags extraction
// @Accept multipart/form-data
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param file formData file true "Document (PDF, JPG, JPEG or PNG)"
// @Param document_type formData string true "Document type label (alias: tipo_documento)"
// @Param format formData string false "Spreadsheet format: xlsx (default) or csv"
// @Success 200 {file} file "Spreadsheet"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 413 {object} ErrorResponse "File too large"
// @Failure 502 {object} ErrorResponse "Extraction service failed"
// @Security BearerAuth
// @Router /extract/download [post]
func (h *ExtractionHandler) Download(c *gin.Context) {
	input, closeFile, err := h.bindInput(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer closeFile()

	result, err := h.extractionService.Extract(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	art := result.Spreadsheet
	filename := spreadsheet.BuildFilename(input.DocumentType, art.Format, h.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

func (h *ExtractionHandler) bindInput(c *gin.Context) (service.ExtractInput, func(), error) {
	noop := func() {}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return service.ExtractInput{}, noop, domain.NewInputError("file", domain.ErrMissingFile)
	}

	format, ok := domain.ParseSpreadsheetFormat(strings.ToLower(strings.TrimSpace(c.PostForm("format"))))
	if !ok {
		return service.ExtractInput{}, noop, domain.NewInputError("format", domain.ErrUnsupportedFormat)
	}

	documentType := strings.TrimSpace(c.PostForm("document_type"))
	if documentType == "" {
		documentType = strings.TrimSpace(c.PostForm("tipo_documento"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return service.ExtractInput{}, noop, fmt.Errorf("opening uploaded file: %w", err)
	}

	return service.ExtractInput{
		File:         file,
		Filename:     fileHeader.Filename,
		Size:         fileHeader.Size,
		DocumentType: documentType,
		Format:       format,
	}, closer(c, file), nil
}

func closer(c *gin.Context, file multipart.File) func() {
	return func() {
		if err := file.Close(); err != nil {
			slog.WarnContext(c.Request.Context(), "handler.closer: closing upload failed", "error", err)
		}
	}
}
