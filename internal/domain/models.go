package domain

import (
	"bytes"
	"encoding/json"
)

// ExtractedDocument is the raw text and tables read from one uploaded file.
type ExtractedDocument struct {
	RawText string
	Tables  []Table
}

// Table is a tagged variant over the two table shapes a DocumentReader can
// produce. Only the field matching Kind is populated.
type Table struct {
	Kind       TableKind
	RowMatches [][3]string
	Structured StructuredTable
}

// StructuredTable is a cell grid with an optional header row.
type StructuredTable struct {
	Header []string
	Rows   [][]string
}

// NewRowMatchesTable creates a table from regex-matched rows of arity 3.
func NewRowMatchesTable(rows [][3]string) Table {
	return Table{Kind: TableKindRowMatches, RowMatches: rows}
}

// NewStructuredTable creates a table from a cell grid. header may be nil.
func NewStructuredTable(header []string, rows [][]string) Table {
	return Table{Kind: TableKindStructured, Structured: StructuredTable{Header: header, Rows: rows}}
}

// Prompt is the complete instruction sent to a text-generation service.
type Prompt struct {
	DocumentType string
	Body         string
}

// Record is one logical group of field=value pairs. Keys keep insertion
// order; setting an existing key replaces its value in place. The zero value
// is an empty record ready to use.
type Record struct {
	keys   []string
	values map[string]string
}

// Set stores value under field.
func (r *Record) Set(field, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[field]; !ok {
		r.keys = append(r.keys, field)
	}
	r.values[field] = value
}

// Get returns the value stored under field.
func (r Record) Get(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Keys returns the field names in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Equal reports whether both records hold the same fields in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.keys) != len(o.keys) {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k || o.values[k] != r.values[k] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as a JSON object in insertion order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewRecord builds a record from alternating field, value arguments.
func NewRecord(pairs ...string) Record {
	var r Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// SpreadsheetArtifact is the tabular output of one extraction. Columns is
// the ordered union of record keys; every row has an entry per column.
type SpreadsheetArtifact struct {
	Columns     []string
	Rows        []map[string]string
	Format      SpreadsheetFormat
	Data        []byte
	ContentType string
}

// Extension returns the file extension for the artifact, without the dot.
func (a *SpreadsheetArtifact) Extension() string {
	return string(a.Format)
}

// ExtractionResult is what the pipeline returns to the HTTP boundary.
type ExtractionResult struct {
	RawOutput   string
	Records     []Record
	Spreadsheet *SpreadsheetArtifact
	Model       string
	Provider    string
	Truncated   bool
	DownloadURL string
}
