package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/mapsheet/internal/core/observability"
)

const DefaultGSheetsBaseURL = "https://docs.google.com/spreadsheets/d"

// GSheets reads a published Google sheet through its CSV export.
type GSheets struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
	now     func() time.Time
}

func NewGSheets(logger *slog.Logger, client *http.Client, baseURL string) *GSheets {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultGSheetsBaseURL
	}
	return &GSheets{logger: logger, client: client, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// ExportURL builds the CSV export address for key and sheet. A non-empty
// proxy replaces the base URL.
func (g *GSheets) ExportURL(req Request) string {
	base := g.baseURL
	if req.Proxy != "" {
		base = strings.TrimRight(req.Proxy, "/")
	}
	q := url.Values{}
	q.Set("tqx", "out:csv")
	if req.SheetName != "" {
		q.Set("sheet", req.SheetName)
	}
	return fmt.Sprintf("%s/%s/gviz/tq?%s", base, url.PathEscape(req.Key), q.Encode())
}

func (g *GSheets) Fetch(ctx context.Context, req Request) (Tables, Metadata, error) {
	if strings.TrimSpace(req.Key) == "" {
		return nil, Metadata{}, fmt.Errorf("gsheets: empty key")
	}
	u := g.ExportURL(req)
	hr, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("build request: %w", err)
	}
	hr.Header.Set("Accept", "text/csv")

	start := g.now()
	resp, err := g.client.Do(hr)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	observability.ObserveUpstreamLatency(KindGSheets, time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, Metadata{}, fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(b))
	}

	rows, err := readCSV(resp.Body)
	if err != nil {
		return nil, Metadata{}, err
	}

	name := req.SheetName
	if name == "" {
		name = DefaultTableName
	}
	g.logger.Debug("sheet fetched", "key", req.Key, "sheet", name, "rows", len(rows))
	return Tables{name: rows}, Metadata{Key: req.Key, TableNames: []string{name}, FetchedAt: g.now()}, nil
}
