// Package record turns line-oriented "field = value" model output into
// ordered records. Parsing never fails: malformed lines are kept as data.
package record

import (
	"strings"

	"docextract/internal/domain"
)

// Parse splits raw into records. A blank line closes the current record. A
// line with "=" is split on the first "=" only; a line without one becomes a
// field with an empty value. Duplicate fields within a record keep the last
// value.
func Parse(raw string) []domain.Record {
	records := []domain.Record{}
	var current domain.Record

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if current.Len() > 0 {
				records = append(records, current)
				current = domain.Record{}
			}
			continue
		}

		if field, value, ok := strings.Cut(line, "="); ok {
			current.Set(strings.TrimSpace(field), strings.TrimSpace(value))
		} else {
			current.Set(line, "")
		}
	}

	if current.Len() > 0 {
		records = append(records, current)
	}
	return records
}

// Summary counts what a parse saw, for logging.
type Summary struct {
	Lines      int
	Pairs      int
	BareLabels int
	Records    int
}

// Stats returns a Summary of raw without building records.
func Stats(raw string) Summary {
	var s Summary
	open := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if open {
				s.Records++
				open = false
			}
			continue
		}
		s.Lines++
		open = true
		if strings.Contains(line, "=") {
			s.Pairs++
		} else {
			s.BareLabels++
		}
	}
	if open {
		s.Records++
	}
	return s
}
