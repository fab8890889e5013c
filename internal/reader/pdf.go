package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docextract/internal/domain"
)

// page holds the words of each non-empty text row of one PDF page.
type page struct {
	number int
	rows   [][]string
}

// readPDFPages extracts words row by row from every page with a text layer.
func readPDFPages(ctx context.Context, path string) (pages []page, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("reading pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}

		pg := page{number: i}
		for _, row := range rows {
			var words []string
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					words = append(words, s)
				}
			}
			if len(words) > 0 {
				pg.rows = append(pg.rows, words)
			}
		}
		pages = append(pages, pg)
	}
	return pages, nil
}

func pagesText(pages []page) string {
	var sb strings.Builder
	for _, pg := range pages {
		for _, words := range pg.rows {
			sb.WriteString(strings.Join(words, " "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// pageTables returns one structured table per page that has at least two
// rows of two or more words. Rows with a single word are left out of it.
func pageTables(pages []page) []domain.Table {
	tables := []domain.Table{}
	for _, pg := range pages {
		var grid [][]string
		for _, words := range pg.rows {
			if len(words) >= 2 {
				grid = append(grid, words)
			}
		}
		if len(grid) >= 2 {
			tables = append(tables, domain.NewStructuredTable(nil, grid))
		}
	}
	return tables
}
