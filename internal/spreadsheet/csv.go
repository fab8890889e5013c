package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
	"time"

	"docextract/internal/domain"
)

// BOM is written first so Excel on Windows detects UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

func encodeCSV(columns []string, rows []map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(BOM)

	w := csv.NewWriter(&buf)
	if len(columns) > 0 {
		if err := w.Write(columns); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}
	for i, row := range rows {
		if err := w.Write(cells(columns, row)); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a document type label for use in
// Content-Disposition. Replaces non-alphanumeric chars (except - _) with _,
// collapses consecutive underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "extracao"
	}
	return s
}

// BuildFilename returns the download name for an artifact.
// Format: {sanitized_document_type}_{YYYY-MM-DD}.{ext}
func BuildFilename(documentType string, format domain.SpreadsheetFormat, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(documentType), now.Format("2006-01-02"), format)
}
