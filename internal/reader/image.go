package reader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"docextract/internal/domain"
)

// rowPattern captures three consecutive whitespace-separated tokens.
var rowPattern = regexp.MustCompile(`(\S+)\s+(\S+)\s+(\S+)`)

func (r *Reader) readImage(ctx context.Context, path string) (*domain.ExtractedDocument, error) {
	if r.ocr == nil {
		return nil, domain.WrapStage(domain.StageOCR, ErrOCRUnavailable)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapStage(domain.StageOCR, fmt.Errorf("reading image: %w", err))
	}

	text, err := r.ocr.RecognizeImage(data)
	if err != nil {
		return nil, domain.WrapStage(domain.StageOCR, err)
	}

	tables := RowMatchTables(text)
	slog.DebugContext(ctx, "reader.Read: image recognized", "chars", len(text), "tables", len(tables))
	return &domain.ExtractedDocument{RawText: text, Tables: tables}, nil
}

// RowMatchTables collects every non-overlapping three-token match in text
// into a single RowMatches table. No match yields no table.
func RowMatchTables(text string) []domain.Table {
	matches := rowPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return []domain.Table{}
	}
	rows := make([][3]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, [3]string{m[1], m[2], m[3]})
	}
	return []domain.Table{domain.NewRowMatchesTable(rows)}
}
