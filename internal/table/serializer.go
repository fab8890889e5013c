// Package table renders extracted tables into a single plain-text block
// suitable for embedding in a prompt.
package table

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"docextract/internal/domain"
)

const (
	cellSep  = "\t"
	rowSep   = "\n"
	tableSep = "\n\n"
)

var errInvalidUTF8 = errors.New("cell is not valid UTF-8")

// cellEscaper keeps separators out of cell text so the grid stays unambiguous.
var cellEscaper = strings.NewReplacer("\r\n", " ", "\t", " ", "\n", " ", "\r", " ")

// Serialize renders tables in order. Each non-empty table is followed by a
// blank line. Output is stable for identical input.
func Serialize(tables []domain.Table) (string, error) {
	var sb strings.Builder
	for i := range tables {
		if err := writeTable(&sb, i, &tables[i]); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func writeTable(sb *strings.Builder, idx int, t *domain.Table) error {
	var rows [][]string
	switch t.Kind {
	case domain.TableKindRowMatches:
		rows = rowMatchesGrid(t.RowMatches)
	case domain.TableKindStructured:
		rows = structuredGrid(t.Structured)
	default:
		return &domain.EncodingError{Table: idx, Row: -1, Col: -1, Err: fmt.Errorf("unknown table kind %q", t.Kind)}
	}
	if len(rows) == 0 {
		return nil
	}

	for r, row := range rows {
		for c, cell := range row {
			if !utf8.ValidString(cell) {
				return &domain.EncodingError{Table: idx, Row: r, Col: c, Err: errInvalidUTF8}
			}
		}
	}

	for r, row := range rows {
		if r > 0 {
			sb.WriteString(rowSep)
		}
		sb.WriteString(strings.Join(row, cellSep))
	}
	sb.WriteString(tableSep)
	return nil
}

func rowMatchesGrid(matches [][3]string) [][]string {
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{cellEscaper.Replace(m[0]), cellEscaper.Replace(m[1]), cellEscaper.Replace(m[2])})
	}
	return rows
}

// structuredGrid flattens header and body row-major, padding ragged rows to
// the widest row.
func structuredGrid(st domain.StructuredTable) [][]string {
	width := len(st.Header)
	for _, row := range st.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil
	}

	rows := make([][]string, 0, len(st.Rows)+1)
	if len(st.Header) > 0 {
		rows = append(rows, padRow(st.Header, width))
	}
	for _, row := range st.Rows {
		rows = append(rows, padRow(row, width))
	}
	return rows
}

func padRow(row []string, width int) []string {
	out := make([]string, width)
	for i, cell := range row {
		out[i] = cellEscaper.Replace(cell)
	}
	return out
}
