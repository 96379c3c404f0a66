package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Column is an ordered, row-aligned sequence of raw string cells.
type Column struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Dataset is the single active table owned by an engine instance.
// All columns share the same row count; New enforces the invariant.
type Dataset struct {
	Columns  []Column `json:"columns"`
	FileName string   `json:"file_name,omitempty"`
	FileSize int64    `json:"file_size,omitempty"`
}

// New builds a dataset from ordered columns, checking row alignment.
func New(columns []Column) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ErrEmpty
	}
	rows := len(columns[0].Values)
	for _, col := range columns[1:] {
		if len(col.Values) != rows {
			return nil, ErrRagged
		}
	}
	return &Dataset{Columns: columns}, nil
}

// Rows returns the shared row count.
func (d *Dataset) Rows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// Cols returns the column count.
func (d *Dataset) Cols() int { return len(d.Columns) }

// ColumnIndex finds a column by name, -1 when absent.
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the names in column order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// RemoveColumn drops the column at index i in place, preserving order.
func (d *Dataset) RemoveColumn(i int) {
	d.Columns = append(d.Columns[:i], d.Columns[i+1:]...)
}

// missingTokens are raw cell values treated as absent regardless of column type.
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"-":    true,
	"?":    true,
}

// IsMissing reports whether a raw cell value represents an absent measurement.
func IsMissing(raw string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(raw))]
}

// ParseNumeric parses a raw cell as a float, tolerating surrounding whitespace,
// thousands separators, and currency or percent decorations.
func ParseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	for _, sym := range []string{"$", "€", "£", "%"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// timeFormats mirror the formats the file adapter accepts on upload.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// ParseTime parses a raw cell as a timestamp using the shared format list.
func ParseTime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NumericValues extracts the parseable cells of a column, skipping missing and
// unparsable tokens. The returned index slice maps each value to its row.
func (c Column) NumericValues() (values []float64, rows []int) {
	for i, raw := range c.Values {
		if IsMissing(raw) {
			continue
		}
		if v, ok := ParseNumeric(raw); ok {
			values = append(values, v)
			rows = append(rows, i)
		}
	}
	return values, rows
}
