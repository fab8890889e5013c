package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// IsImage reports whether the file type must go through OCR.
func (f FileType) IsImage() bool {
	return f == FileTypeJPG || f == FileTypePNG
}

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// TableKind tags the variant held by a Table.
type TableKind string

const (
	TableKindRowMatches TableKind = "row_matches"
	TableKindStructured TableKind = "structured"
)

// SpreadsheetFormat is the binary encoding of a SpreadsheetArtifact.
type SpreadsheetFormat string

const (
	SpreadsheetFormatXLSX SpreadsheetFormat = "xlsx"
	SpreadsheetFormatCSV  SpreadsheetFormat = "csv"
)

// SpreadsheetContentTypes maps each format to its MIME type.
var SpreadsheetContentTypes = map[SpreadsheetFormat]string{
	SpreadsheetFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	SpreadsheetFormatCSV:  "text/csv; charset=utf-8",
}

// ParseSpreadsheetFormat returns the format named by s. An empty string
// selects xlsx.
func ParseSpreadsheetFormat(s string) (SpreadsheetFormat, bool) {
	switch SpreadsheetFormat(s) {
	case "", SpreadsheetFormatXLSX:
		return SpreadsheetFormatXLSX, true
	case SpreadsheetFormatCSV:
		return SpreadsheetFormatCSV, true
	default:
		return "", false
	}
}

// Stage names a step of the extraction pipeline.
type Stage string

const (
	StageUpload      Stage = "upload"
	StageOCR         Stage = "ocr"
	StageTables      Stage = "tables"
	StageSerialize   Stage = "serialize"
	StageGenerate    Stage = "generate"
	StageSpreadsheet Stage = "spreadsheet"
	StageArchive     Stage = "archive"
)

// GenerationErrorKind classifies a failed text-generation call.
type GenerationErrorKind string

const (
	GenerationNetwork         GenerationErrorKind = "network"
	GenerationTimeout         GenerationErrorKind = "timeout"
	GenerationStatus          GenerationErrorKind = "status"
	GenerationRateLimited     GenerationErrorKind = "rate_limited"
	GenerationEmptyResponse   GenerationErrorKind = "empty_response"
	GenerationInvalidResponse GenerationErrorKind = "invalid_response"
)
