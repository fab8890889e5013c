// Package spreadsheet converts parsed records into a downloadable tabular
// artifact. Column order is the first-seen order of record keys.
package spreadsheet

import (
	"fmt"

	"docextract/internal/domain"
)

// Columns returns the ordered union of all record keys, first-seen order.
func Columns(records []domain.Record) []string {
	seen := make(map[string]struct{})
	cols := []string{}
	for _, r := range records {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}

// Rows returns one row per record with an entry for every column. Fields a
// record does not carry map to "".
func Rows(records []domain.Record, columns []string) []map[string]string {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		row := make(map[string]string, len(columns))
		for _, c := range columns {
			v, _ := r.Get(c)
			row[c] = v
		}
		rows = append(rows, row)
	}
	return rows
}

// Emit builds the artifact for records and encodes it in format. Empty input
// yields a header-only artifact.
func Emit(records []domain.Record, format domain.SpreadsheetFormat) (*domain.SpreadsheetArtifact, error) {
	columns := Columns(records)
	rows := Rows(records, columns)

	var (
		data []byte
		err  error
	)
	switch format {
	case domain.SpreadsheetFormatXLSX:
		data, err = encodeXLSX(columns, rows)
	case domain.SpreadsheetFormatCSV:
		data, err = encodeCSV(columns, rows)
	default:
		return nil, &domain.SerializationError{Format: format, Err: fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)}
	}
	if err != nil {
		return nil, &domain.SerializationError{Format: format, Err: err}
	}

	return &domain.SpreadsheetArtifact{
		Columns:     columns,
		Rows:        rows,
		Format:      format,
		Data:        data,
		ContentType: domain.SpreadsheetContentTypes[format],
	}, nil
}

// cells lays a row out in column order.
func cells(columns []string, row map[string]string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = row[c]
	}
	return out
}
