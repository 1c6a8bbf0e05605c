package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// XLSX reads every sheet of a workbook on disk. The key is the file path.
type XLSX struct {
	now func() time.Time
}

func NewXLSX() *XLSX { return &XLSX{now: time.Now} }

func (x *XLSX) Fetch(ctx context.Context, req Request) (Tables, Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, Metadata{}, err
	}
	f, err := excelize.OpenFile(req.Key)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("open workbook %s: %w", req.Key, err)
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	switch {
	case req.SheetName != "":
		if !slices.Contains(names, req.SheetName) {
			return nil, Metadata{}, fmt.Errorf("workbook %s: sheet %q not found", req.Key, req.SheetName)
		}
		names = []string{req.SheetName}
	case req.SimpleSheet && len(names) > 1:
		names = names[:1]
	}

	tables := make(Tables, len(names))
	kept := make([]string, 0, len(names))
	for _, name := range names {
		recs, err := f.GetRows(name)
		if err != nil {
			return nil, Metadata{}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		rows, err := RowsFromRecords(recs)
		if err != nil {
			// empty sheets carry no header and are left out
			continue
		}
		tables[name] = rows
		kept = append(kept, name)
	}
	return tables, Metadata{Key: req.Key, TableNames: kept, FetchedAt: x.now()}, nil
}

// CSVFile reads one CSV file as a single table named after the file.
type CSVFile struct {
	now func() time.Time
}

func NewCSVFile() *CSVFile { return &CSVFile{now: time.Now} }

func (c *CSVFile) Fetch(ctx context.Context, req Request) (Tables, Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, Metadata{}, err
	}
	fh, err := os.Open(req.Key)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = fh.Close() }()

	rows, err := readCSV(fh)
	if err != nil {
		return nil, Metadata{}, err
	}
	name := req.SheetName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(req.Key), filepath.Ext(req.Key))
	}
	return Tables{name: rows}, Metadata{Key: req.Key, TableNames: []string{name}, FetchedAt: c.now()}, nil
}
