// Package app wires configuration into served maps: fetchers, caches,
// providers, the HTTP surface and the refresh consumer.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mohammed-shakir/mapsheet/internal/atlas"
	"github.com/mohammed-shakir/mapsheet/internal/cache/redisstore"
	"github.com/mohammed-shakir/mapsheet/internal/clickevents"
	"github.com/mohammed-shakir/mapsheet/internal/core/config"
	"github.com/mohammed-shakir/mapsheet/internal/core/health"
	"github.com/mohammed-shakir/mapsheet/internal/core/httpclient"
	"github.com/mohammed-shakir/mapsheet/internal/core/observability"
	"github.com/mohammed-shakir/mapsheet/internal/core/router"
	"github.com/mohammed-shakir/mapsheet/internal/core/server"
	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/metrics"
	"github.com/mohammed-shakir/mapsheet/internal/point"
	"github.com/mohammed-shakir/mapsheet/internal/provider"
	"github.com/mohammed-shakir/mapsheet/internal/sheet"
	"github.com/mohammed-shakir/mapsheet/internal/source"
	"github.com/mohammed-shakir/mapsheet/internal/source/cached"
	"github.com/mohammed-shakir/mapsheet/internal/web"
	refreshkafka "github.com/mohammed-shakir/mapsheet/pkg/refresh/kafka"
)

type App struct {
	cfg     config.Config
	log     *slog.Logger
	atlas   *atlas.Atlas
	metrics *metrics.Provider
	redis   *redisstore.Client
	refresh *refreshkafka.Runner
	clicks  *clickevents.Publisher
	doc     *document.Static
	fetch   map[string]*cached.Fetcher
	client  *http.Client
}

// Build connects Redis when configured and registers one sheet per map
// definition. Nothing is fetched yet.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, build metrics.BuildInfo) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		cfg:     cfg,
		log:     logger,
		atlas:   atlas.New(logger.With("component", "atlas")),
		metrics: metrics.Init(metrics.Config{Enabled: cfg.MetricsEnabled, Build: build}),
		doc:     document.NewStatic(),
		fetch:   map[string]*cached.Fetcher{},
		client:  httpclient.NewOutbound(cfg.FetchTimeout),
	}

	if err := a.doc.LoadTemplates(cfg.TemplatesDir); err != nil {
		return nil, err
	}

	if cfg.RedisAddr != "" {
		rc, err := redisstore.New(ctx, cfg.RedisAddr, redisstore.WithOpTimeout(cfg.CacheOpTimeout))
		if err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		a.redis = rc
	}

	if cfg.Refresh.ClickTopic != "" {
		brokers := refreshkafka.DefaultConfig(cfg.Refresh.Brokers, "", "").Brokers
		p, err := clickevents.New(brokers, cfg.Refresh.ClickTopic, 1024, logger.With("component", "clickevents"))
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.clicks = p
	}

	for _, def := range cfg.Maps {
		s, inv, err := a.buildSheet(def)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("map %q: %w", def.Name, err)
		}
		if err := a.atlas.Add(def.Name, s, inv); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	if cfg.Refresh.Enabled {
		rcfg := refreshkafka.DefaultConfig(cfg.Refresh.Brokers, cfg.Refresh.Topic, cfg.Refresh.GroupID)
		rcfg.TLS = cfg.Refresh.TLS
		rcfg.SASL = refreshkafka.SASLConfig{
			Enable:    cfg.Refresh.SASLUser != "",
			Mechanism: cfg.Refresh.SASLMechanism,
			Username:  cfg.Refresh.SASLUser,
			Password:  cfg.Refresh.SASLPassword,
		}
		a.refresh = refreshkafka.New(rcfg, a.atlas, refreshkafka.Options{
			Logger:   logger.With("component", "refresh"),
			Register: a.metrics.Registerer(),
		})
	}

	logger.Info("maps configured", "maps", a.atlas.Names(), "redis", a.redis != nil, "refresh", a.refresh != nil)
	return a, nil
}

func (a *App) Atlas() *atlas.Atlas { return a.atlas }

// fetcher returns the cached fetcher shared by every map of one source kind.
func (a *App) fetcher(kind string) (*cached.Fetcher, error) {
	if f, ok := a.fetch[kind]; ok {
		return f, nil
	}
	var base source.Fetcher
	switch kind {
	case source.KindGSheets:
		base = source.NewGSheets(a.log, a.client, a.cfg.GSheetsBaseURL)
	case source.KindXLSX:
		base = source.NewXLSX()
	case source.KindCSV:
		base = source.NewCSVFile()
	default:
		return nil, fmt.Errorf("unknown source %q", kind)
	}
	opts := []cached.Option{
		cached.WithTTL(a.cfg.CacheTTL),
		cached.WithLRUSize(a.cfg.CacheLRUSize),
		cached.WithOpTimeout(a.cfg.CacheOpTimeout),
		cached.WithLogger(a.log),
	}
	if a.redis != nil {
		opts = append(opts, cached.WithStore(a.redis))
	}
	f, err := cached.New(base, kind, opts...)
	if err != nil {
		return nil, err
	}
	a.fetch[kind] = f
	return f, nil
}

func (a *App) buildSheet(def config.MapDef) (*sheet.Sheet, atlas.Invalidator, error) {
	f, err := a.fetcher(def.Source)
	if err != nil {
		return nil, nil, err
	}

	a.doc.AddElement(document.Container{ID: def.Container})

	// popup_template names a template from TEMPLATES_DIR or is inline source.
	// An unknown name without actions is left for sheet.New to reject.
	tmplID := def.PopupTemplate
	if tmplID != "" {
		if _, ok := a.doc.TemplateSource(tmplID); !ok && strings.Contains(tmplID, "{{") {
			tmplID = def.Name + ".popup"
			a.doc.AddTemplate(tmplID, def.PopupTemplate)
		}
	}

	name := def.Name
	s, err := sheet.New(sheet.Config{
		Key:          def.Key,
		SheetName:    def.Sheet,
		ContainerID:  def.Container,
		ProviderName: def.Provider,
		ProviderOptions: provider.Options{
			MapOptions:   mapsdk.Options(def.MapOptions),
			LayerOptions: mapsdk.Options(def.LayerOptions),
			Accumulate:   def.Accumulate,
		},
		Fields:          def.Fields,
		TitleColumn:     def.TitleColumn,
		PopupTemplateID: tmplID,
		MarkerOptions:   mapsdk.Options(def.MarkerOptions),
		Click:           func(_ mapsdk.Event, p *point.Point) { a.onClick(name, p) },
		Proxy:           def.Proxy,
		SimpleSheet:     def.Simple(),
	},
		sheet.WithDocument(a.doc),
		sheet.WithFetcher(f),
		sheet.WithLogger(a.log.With("map", name)),
	)
	if err != nil {
		return nil, nil, err
	}
	return s, f, nil
}

func (a *App) onClick(name string, p *point.Point) {
	observability.IncMarkerClick(name)
	if a.clicks == nil {
		return
	}
	ev := clickevents.Event{Map: name, Lat: p.Latitude(), Lng: p.Longitude(), TS: time.Now().UTC()}
	if id, ok := p.Marker(); ok {
		ev.MarkerID = int64(id)
	}
	ev.Title, _ = p.Title()
	a.clicks.Publish(ev)
}

// Handler is the complete HTTP surface.
func (a *App) Handler() http.Handler {
	ready := map[string]health.Check{"maps": a.atlas.Ready}
	if a.redis != nil {
		ready["redis"] = a.redis.Ping
	}
	if a.refresh != nil {
		ready["refresh"] = health.FromReporter(a.refresh)
	}
	d := server.Deps{
		Logger: a.log,
		Maps:   a.atlas,
		Routes: router.Options{
			DefaultRes: a.cfg.H3Res,
			Keys:       web.Keys{Google: a.cfg.Keys.Google, MapQuest: a.cfg.Keys.MapQuest, MapBox: a.cfg.Keys.MapBox},
		},
		Ready: ready,
	}
	if a.metrics.Enabled() {
		d.Metrics = a.metrics.Handler()
		d.MetricsPath = a.metrics.Path()
	}
	return server.NewHandler(d)
}

// Serve draws every map once, starts the refresh consumer and the optional
// periodic refresh, then serves HTTP until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if err := a.atlas.RefreshAll(ctx); err != nil {
		a.log.Warn("initial draw incomplete", "err", err)
	}
	if a.refresh != nil {
		if err := a.refresh.Start(ctx); err != nil {
			return fmt.Errorf("start refresh consumer: %w", err)
		}
		defer a.refresh.Stop()
	}
	if a.cfg.RefreshEvery > 0 {
		go a.refreshLoop(ctx, a.cfg.RefreshEvery)
	}
	return server.Run(ctx, a.cfg.Addr, a.log, a.Handler())
}

func (a *App) refreshLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, n := range a.atlas.Names() {
				if err := a.atlas.Invalidate(ctx, n); err != nil {
					a.log.Warn("periodic invalidation failed", "map", n, "err", err)
				}
			}
			if err := a.atlas.RefreshAll(ctx); err != nil {
				a.log.Warn("periodic refresh incomplete", "err", err)
			}
		}
	}
}

// RenderPage draws name once and writes its standalone HTML page to w.
func (a *App) RenderPage(ctx context.Context, w io.Writer, name string) error {
	if err := a.atlas.Refresh(ctx, name); err != nil {
		return err
	}
	sc, err := a.atlas.Scene(name)
	if err != nil {
		return err
	}
	return web.Render(w, web.Page{
		Title: name,
		Scene: sc,
		Keys:  web.Keys{Google: a.cfg.Keys.Google, MapQuest: a.cfg.Keys.MapQuest, MapBox: a.cfg.Keys.MapBox},
	})
}

func (a *App) Close() error {
	var errs []error
	if a.clicks != nil {
		errs = append(errs, a.clicks.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
