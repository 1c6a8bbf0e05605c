// Package router exposes the served maps over HTTP.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/mapsheet/internal/atlas"
	"github.com/mohammed-shakir/mapsheet/internal/geo"
	mylog "github.com/mohammed-shakir/mapsheet/internal/logger"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/web"
)

// Maps is the view of the map registry the handlers need.
type Maps interface {
	Statuses() []atlas.Status
	Status(name string) (atlas.Status, error)
	Scene(name string) (mapsdk.Scene, error)
	GeoJSON(name string, res int) (geo.FeatureCollection, error)
	Cells(name string, res int) (geo.FeatureCollection, error)
	Click(name string, id mapsdk.MarkerID) (atlas.ClickResult, error)
	Invalidate(ctx context.Context, name string) error
	Refresh(ctx context.Context, name string) error
}

type Options struct {
	DefaultRes int
	Keys       web.Keys
}

type handlers struct {
	log  *slog.Logger
	maps Maps
	opts Options
}

// Mount registers the /maps routes on r.
func Mount(r chi.Router, logger *slog.Logger, m Maps, opts Options) {
	if logger == nil {
		logger = slog.Default()
	}
	if geo.ValidateRes(opts.DefaultRes) != nil {
		opts.DefaultRes = geo.DefaultRes
	}
	h := &handlers{log: logger, maps: m, opts: opts}

	r.Route("/maps", func(r chi.Router) {
		r.Get("/", h.list)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", h.page)
			r.Get("/status", h.status)
			r.Get("/scene", h.scene)
			r.Get("/points.geojson", h.points)
			r.Get("/cells.geojson", h.cells)
			r.Post("/refresh", h.refresh)
			r.Post("/markers/{id}/click", h.click)
		})
	})
}

func (h *handlers) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.maps.Statuses())
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.maps.Status(chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) scene(w http.ResponseWriter, r *http.Request) {
	sc, err := h.maps.Scene(chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *handlers) page(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sc, err := h.maps.Scene(name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	err = web.Render(&buf, web.Page{
		Title:    name,
		Scene:    sc,
		ClickURL: "/maps/" + name + "/markers",
		Keys:     h.opts.Keys,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *handlers) points(w http.ResponseWriter, r *http.Request) {
	h.geojson(w, r, h.maps.GeoJSON)
}

func (h *handlers) cells(w http.ResponseWriter, r *http.Request) {
	h.geojson(w, r, h.maps.Cells)
}

func (h *handlers) geojson(w http.ResponseWriter, r *http.Request, fn func(string, int) (geo.FeatureCollection, error)) {
	res, err := parseRes(r, h.opts.DefaultRes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fc, err := fn(chi.URLParam(r, "name"), res)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeEncoded(w, http.StatusOK, "application/geo+json", fc)
}

// refresh drops cached source data and redraws the map.
func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := mylog.WithMap(r.Context(), name)
	if err := h.maps.Invalidate(ctx, name); err != nil && !errors.Is(err, atlas.ErrUnknownMap) {
		h.log.WarnContext(ctx, "cache invalidation failed", "err", err)
	}
	if err := h.maps.Refresh(ctx, name); err != nil {
		h.fail(w, r, err)
		return
	}
	st, err := h.maps.Status(name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) click(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid marker id", http.StatusBadRequest)
		return
	}
	res, err := h.maps.Click(name, mapsdk.MarkerID(id))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseRes(r *http.Request, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("res"))
	if raw == "" {
		return def, nil
	}
	res, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid res %q", raw)
	}
	if err := geo.ValidateRes(res); err != nil {
		return 0, err
	}
	return res, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, atlas.ErrUnknownMap), errors.Is(err, atlas.ErrUnknownMarker):
		return http.StatusNotFound
	case errors.Is(err, atlas.ErrNotDrawn):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		h.log.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "status", code, "err", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	writeEncoded(w, code, "application/json", v)
}

// writeEncoded encodes v before any header is written, so a value that
// cannot be encoded yields a 500 instead of an empty 200.
func writeEncoded(w http.ResponseWriter, code int, contentType string, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}
