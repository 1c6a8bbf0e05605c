// Package point turns spreadsheet rows into geographic points.
package point

import "strings"

// Row maps a normalized column header to its cell value.
type Row map[string]string

// NormalizeField lowercases s and removes every space character. Sources and
// lookups must both go through it so headers like "Icon URL" and "iconurl"
// meet.
func NormalizeField(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// NewRow normalizes the keys of a raw header->value mapping. When two headers
// normalize to the same key the later one in iteration order wins, so callers
// with ordered headers should use FromRecord.
func NewRow(raw map[string]string) Row {
	r := make(Row, len(raw))
	for k, v := range raw {
		r[NormalizeField(k)] = v
	}
	return r
}

// FromRecord builds a Row from a header line and one record. Missing trailing
// cells become empty strings; the first header wins on key collisions.
func FromRecord(header, record []string) Row {
	r := make(Row, len(header))
	for i, h := range header {
		k := NormalizeField(h)
		if k == "" {
			continue
		}
		if _, dup := r[k]; dup {
			continue
		}
		v := ""
		if i < len(record) {
			v = record[i]
		}
		r[k] = v
	}
	return r
}

// Get returns the value stored under the normalized form of field.
func (r Row) Get(field string) (string, bool) {
	if field == "" || r == nil {
		return "", false
	}
	v, ok := r[NormalizeField(field)]
	return v, ok
}
