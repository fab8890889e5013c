package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docextract/internal/domain"
	"docextract/internal/middleware"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stage string `json:"stage,omitempty"`
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, ErrorResponse{Error: msg, Code: code})
}

// MapError translates pipeline errors to HTTP status codes and error codes.
func MapError(err error) (status int, code, msg string) {
	var genErr *domain.GenerationError
	var inErr *domain.InputError

	switch {
	case errors.Is(err, domain.ErrMissingFile):
		return http.StatusBadRequest, "MISSING_FILE", "Nenhum arquivo enviado"
	case errors.Is(err, domain.ErrEmptyFilename):
		return http.StatusBadRequest, "INVALID_FILENAME", "Nome de arquivo inválido"
	case errors.Is(err, domain.ErrMissingDocumentType):
		return http.StatusBadRequest, "MISSING_DOCUMENT_TYPE", "Tipo de documento não informado"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "Tipo de arquivo não suportado; permitidos: pdf, jpg, jpeg, png"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Formato de planilha não suportado; permitidos: xlsx, csv"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Arquivo excede o tamanho máximo permitido"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Não autorizado"
	case errors.As(err, &inErr):
		return http.StatusBadRequest, "INVALID_INPUT", "Requisição inválida"
	case errors.As(err, &genErr):
		if genErr.Kind == domain.GenerationTimeout {
			return http.StatusBadGateway, "GENERATION_TIMEOUT", "O serviço de extração não respondeu a tempo"
		}
		return http.StatusBadGateway, "GENERATION_FAILED", "Falha ao consultar o serviço de extração"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Erro interno ao processar o documento"
	}
}

// HandleError maps a pipeline error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapError(err)
	requestID := middleware.GetRequestID(c)

	resp := ErrorResponse{Error: msg, Code: code}
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = string(stageErr.Stage)
	}

	var genErr *domain.GenerationError
	if errors.As(err, &genErr) && genErr.Kind == domain.GenerationRateLimited && genErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(genErr.RetryAfter.Seconds())))
	}

	if status >= 500 {
		slog.ErrorContext(c.Request.Context(), "handler.HandleError: request failed",
			"request_id", requestID, "stage", resp.Stage, "status", status, "error", err)
	} else {
		slog.WarnContext(c.Request.Context(), "handler.HandleError: request rejected",
			"request_id", requestID, "stage", resp.Stage, "status", status, "error", err)
	}
	c.JSON(status, resp)
}
