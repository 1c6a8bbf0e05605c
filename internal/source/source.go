// Package source fetches spreadsheet tables and hands them over as
// normalized rows.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mohammed-shakir/mapsheet/internal/point"
)

const (
	KindGSheets = "gsheets"
	KindXLSX    = "xlsx"
	KindCSV     = "csv"

	DefaultTableName = "Sheet1"
)

var ErrNoRows = errors.New("source has no header row")

// Tables holds rows by table name.
type Tables map[string][]point.Row

type Metadata struct {
	Key        string    `json:"key"`
	TableNames []string  `json:"table_names"`
	FetchedAt  time.Time `json:"fetched_at"`
}

type Request struct {
	Key       string
	SheetName string
	// Proxy replaces the upstream base URL for HTTP sources.
	Proxy string
	// SimpleSheet limits the result to a single table when no SheetName is
	// requested.
	SimpleSheet bool
}

// Fetcher loads the tables behind a key. A successful Fetch reports every
// table it returned in Metadata.TableNames, in source order.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Tables, Metadata, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (Tables, Metadata, error)

func (f FetcherFunc) Fetch(ctx context.Context, req Request) (Tables, Metadata, error) {
	return f(ctx, req)
}

// RowsFromRecords turns a header record plus data records into rows, skipping
// records whose cells are all empty.
func RowsFromRecords(records [][]string) ([]point.Row, error) {
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	header := records[0]
	rows := make([]point.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, point.FromRecord(header, rec))
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readCSV(r io.Reader) ([]point.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return RowsFromRecords(recs)
}
