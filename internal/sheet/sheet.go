// Package sheet binds a spreadsheet source to a map provider. A Sheet turns
// fetched rows into points and runs one initialize and draw cycle per load.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/point"
	"github.com/mohammed-shakir/mapsheet/internal/provider"
	"github.com/mohammed-shakir/mapsheet/internal/source"
)

var (
	ErrMissingKey         = errors.New("sheet: source key is required")
	ErrMissingProvider    = errors.New("sheet: provider is required")
	ErrMissingFetcher     = errors.New("sheet: no fetcher configured")
	ErrTemplateNotFound   = errors.New("sheet: popup template not found")
	ErrContainerNotFound  = errors.New("sheet: container not found")
	ErrDocumentRequired   = errors.New("sheet: document required to resolve ids")
	ErrConflictingContent = errors.New("sheet: popup template given both as renderer and id")
)

// Callback runs after every draw. recv is Config.CallbackContext when set,
// otherwise the Sheet itself.
type Callback func(recv any, s *Sheet, f source.Fetcher)

type Config struct {
	Key       string
	SheetName string

	// Container is used as is; ContainerID is looked up in the document.
	Container   document.Container
	ContainerID string

	// Provider is adopted as is. Otherwise ProviderName is looked up in the
	// provider registry with ProviderOptions.
	Provider        provider.Provider
	ProviderName    string
	ProviderOptions provider.Options
	// Map is an externally owned map handle. It is handed to a provider built
	// by name and returned by Sheet.Map.
	Map *mapsdk.Map

	Fields          []string
	TitleColumn     string
	PopupContent    point.ContentFunc
	PopupTemplate   point.TemplateFunc
	PopupTemplateID string
	MarkerOptions   mapsdk.Options
	Click           point.ClickFunc

	Callback        Callback
	CallbackContext any

	Proxy       string
	SimpleSheet bool
}

type Option func(*Sheet)

func WithDocument(d document.Document) Option { return func(s *Sheet) { s.doc = d } }
func WithFetcher(f source.Fetcher) Option     { return func(s *Sheet) { s.fetcher = f } }
func WithLogger(l *slog.Logger) Option        { return func(s *Sheet) { s.logger = l } }

// Sheet is not safe for concurrent use. Callers serialize Fetch, LoadPoints
// and Draw per Sheet.
type Sheet struct {
	cfg       Config
	sheetName string
	container document.Container
	provider  provider.Provider
	template  point.TemplateFunc
	points    []*point.Point

	doc     document.Document
	fetcher source.Fetcher
	logger  *slog.Logger
}

// New validates cfg, resolves the container and popup template once and
// settles the provider. Nothing is fetched or drawn.
func New(cfg Config, opts ...Option) (*Sheet, error) {
	s := &Sheet{cfg: cfg, sheetName: cfg.SheetName, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}

	if cfg.Key == "" {
		return nil, ErrMissingKey
	}

	switch {
	case cfg.Provider != nil:
		s.provider = cfg.Provider
	case cfg.ProviderName != "":
		po := cfg.ProviderOptions
		if po.Map == nil {
			po.Map = cfg.Map
		}
		p, err := provider.New(cfg.ProviderName, po)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", cfg.Key, err)
		}
		s.provider = p
	default:
		return nil, ErrMissingProvider
	}

	c, err := s.resolveContainer()
	if err != nil {
		return nil, err
	}
	s.container = c

	t, err := s.resolveTemplate()
	if err != nil {
		return nil, err
	}
	s.template = t

	if s.cfg.MarkerOptions == nil {
		s.cfg.MarkerOptions = mapsdk.Options{}
	}
	return s, nil
}

func (s *Sheet) resolveContainer() (document.Container, error) {
	if s.cfg.ContainerID == "" {
		return s.cfg.Container, nil
	}
	if s.doc == nil {
		return document.Container{}, fmt.Errorf("container %q: %w", s.cfg.ContainerID, ErrDocumentRequired)
	}
	c, ok := s.doc.Element(s.cfg.ContainerID)
	if !ok {
		return document.Container{}, fmt.Errorf("%w: %q", ErrContainerNotFound, s.cfg.ContainerID)
	}
	return c, nil
}

func (s *Sheet) resolveTemplate() (point.TemplateFunc, error) {
	id := s.cfg.PopupTemplateID
	switch {
	case id == "":
		return s.cfg.PopupTemplate, nil
	case s.cfg.PopupTemplate != nil:
		return nil, ErrConflictingContent
	case s.doc == nil:
		return nil, fmt.Errorf("template %q: %w", id, ErrDocumentRequired)
	}
	src, ok := s.doc.TemplateSource(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	t, err := document.Compile(id, src)
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", id, err)
	}
	return t, nil
}

// Fetch asks the fetcher for the sheet and loads the result. A failed fetch
// is returned as is and leaves the current points and map untouched.
func (s *Sheet) Fetch(ctx context.Context) error {
	if s.fetcher == nil {
		return ErrMissingFetcher
	}
	tables, meta, err := s.fetcher.Fetch(ctx, s.Request())
	if err != nil {
		return fmt.Errorf("fetch %s: %w", s.cfg.Key, err)
	}
	s.LoadPoints(tables, meta)
	return nil
}

// Request is what Fetch hands to the fetcher.
func (s *Sheet) Request() source.Request {
	return source.Request{
		Key:         s.cfg.Key,
		SheetName:   s.cfg.SheetName,
		Proxy:       s.cfg.Proxy,
		SimpleSheet: s.cfg.SimpleSheet,
	}
}

// LoadPoints replaces the points with one per row of the selected table, in
// row order, and always draws. Without a configured sheet name the first
// reported table is selected and kept for later loads.
func (s *Sheet) LoadPoints(tables source.Tables, meta source.Metadata) {
	if s.sheetName == "" && len(meta.TableNames) > 0 {
		s.sheetName = meta.TableNames[0]
	}

	rows := tables[s.sheetName]
	opts := point.Options{
		Fields:        s.cfg.Fields,
		TitleColumn:   s.cfg.TitleColumn,
		PopupContent:  s.cfg.PopupContent,
		PopupTemplate: s.template,
		MarkerOptions: s.cfg.MarkerOptions,
		Click:         s.cfg.Click,
	}
	points := make([]*point.Point, 0, len(rows))
	for _, r := range rows {
		points = append(points, point.New(r, opts))
	}
	s.points = points

	s.logger.Debug("points loaded", "key", s.cfg.Key, "sheet", s.sheetName, "rows", len(rows))
	s.Draw()
}

// Draw runs one initialize and draw cycle on the provider and then the
// completion callback.
func (s *Sheet) Draw() {
	s.provider.Initialize(s.container)
	s.provider.DrawPoints(s.points)
	if s.cfg.Callback == nil {
		return
	}
	var recv any = s
	if s.cfg.CallbackContext != nil {
		recv = s.cfg.CallbackContext
	}
	s.cfg.Callback(recv, s, s.fetcher)
}

// Map returns the externally supplied handle when there is one, otherwise
// the provider's own.
func (s *Sheet) Map() *mapsdk.Map {
	if s.cfg.Map != nil {
		return s.cfg.Map
	}
	return s.provider.Map()
}

// Points returns the points of the last load.
func (s *Sheet) Points() []*point.Point { return s.points }

// ValidCount counts the points that can be drawn.
func (s *Sheet) ValidCount() int {
	n := 0
	for _, p := range s.points {
		if p.IsValid() {
			n++
		}
	}
	return n
}

func (s *Sheet) Key() string                   { return s.cfg.Key }
func (s *Sheet) SheetName() string             { return s.sheetName }
func (s *Sheet) Provider() provider.Provider   { return s.provider }
func (s *Sheet) Container() document.Container { return s.container }
func (s *Sheet) Fetcher() source.Fetcher       { return s.fetcher }
func (s *Sheet) Template() point.TemplateFunc  { return s.template }
func (s *Sheet) MarkerOptions() mapsdk.Options { return s.cfg.MarkerOptions }
