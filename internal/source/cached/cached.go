// Package cached decorates a source.Fetcher with an in-process LRU and an
// optional Redis second level.
package cached

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/mapsheet/internal/cache/keys"
	"github.com/mohammed-shakir/mapsheet/internal/core/observability"
	"github.com/mohammed-shakir/mapsheet/internal/source"
)

const (
	DefaultTTL       = 5 * time.Minute
	DefaultLRUSize   = 128
	DefaultOpTimeout = 250 * time.Millisecond
)

// Store is the second-level cache. *redisstore.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type payload struct {
	Tables source.Tables   `json:"tables"`
	Meta   source.Metadata `json:"meta"`
}

type entry struct {
	raw     []byte
	expires time.Time
}

type Option func(*Fetcher)

func WithStore(s Store) Option              { return func(f *Fetcher) { f.l2 = s } }
func WithTTL(d time.Duration) Option        { return func(f *Fetcher) { f.ttl = d } }
func WithLRUSize(n int) Option              { return func(f *Fetcher) { f.size = n } }
func WithOpTimeout(d time.Duration) Option  { return func(f *Fetcher) { f.opTimeout = d } }
func WithLogger(l *slog.Logger) Option      { return func(f *Fetcher) { f.logger = l } }
func WithClock(now func() time.Time) Option { return func(f *Fetcher) { f.now = now } }

type Fetcher struct {
	next      source.Fetcher
	kind      string
	l2        Store
	ttl       time.Duration
	size      int
	opTimeout time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
	l1 *lru.Cache[string, entry]
}

// New wraps next. kind is the source kind and becomes part of every cache key.
func New(next source.Fetcher, kind string, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		next:      next,
		kind:      kind,
		ttl:       DefaultTTL,
		size:      DefaultLRUSize,
		opTimeout: DefaultOpTimeout,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	if f.size <= 0 {
		f.size = DefaultLRUSize
	}
	c, err := lru.New[string, entry](f.size)
	if err != nil {
		return nil, fmt.Errorf("lru: %w", err)
	}
	f.l1 = c
	return f, nil
}

func (f *Fetcher) Fetch(ctx context.Context, req source.Request) (source.Tables, source.Metadata, error) {
	key := keys.Key(f.kind, req.Key, req.SheetName, req.SimpleSheet)

	if raw, ok := f.fromL1(key); ok {
		if t, m, err := decode(raw); err == nil {
			observability.AddCacheHits(1)
			return t, m, nil
		}
		f.dropL1(key)
	}

	if raw, ok := f.fromL2(ctx, key); ok {
		if t, m, err := decode(raw); err == nil {
			f.putL1(key, raw)
			return t, m, nil
		}
		f.logger.Warn("dropping undecodable cache entry", "key", key)
	}
	if f.l2 == nil {
		observability.AddCacheMisses(1)
	}

	tables, meta, err := f.next.Fetch(ctx, req)
	if err != nil {
		return nil, source.Metadata{}, err
	}

	raw, err := json.Marshal(payload{Tables: tables, Meta: meta})
	if err != nil {
		f.logger.Warn("cache encode failed", "key", key, "err", err)
		return tables, meta, nil
	}
	f.putL1(key, raw)
	f.toL2(ctx, key, raw)
	return tables, meta, nil
}

// Invalidate drops every cached variant of key and sheet from both levels.
func (f *Fetcher) Invalidate(ctx context.Context, key, sheet string) error {
	ks := keys.Variants(f.kind, key, sheet)
	f.mu.Lock()
	for _, k := range ks {
		f.l1.Remove(k)
	}
	f.mu.Unlock()

	if f.l2 == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()
	if err := f.l2.Del(cctx, ks...); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

func (f *Fetcher) fromL1(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.l1.Get(key)
	if !ok {
		return nil, false
	}
	if !f.now().Before(e.expires) {
		f.l1.Remove(key)
		return nil, false
	}
	return e.raw, true
}

func (f *Fetcher) putL1(key string, raw []byte) {
	f.mu.Lock()
	f.l1.Add(key, entry{raw: raw, expires: f.now().Add(f.ttl)})
	f.mu.Unlock()
}

func (f *Fetcher) dropL1(key string) {
	f.mu.Lock()
	f.l1.Remove(key)
	f.mu.Unlock()
}

func (f *Fetcher) fromL2(ctx context.Context, key string) ([]byte, bool) {
	if f.l2 == nil {
		return nil, false
	}
	cctx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()
	raw, ok, err := f.l2.Get(cctx, key)
	if err != nil {
		f.logger.Warn("cache read failed", "key", key, "err", err)
		return nil, false
	}
	return raw, ok
}

func (f *Fetcher) toL2(ctx context.Context, key string, raw []byte) {
	if f.l2 == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()
	if err := f.l2.Set(cctx, key, raw, f.ttl); err != nil {
		f.logger.Warn("cache write failed", "key", key, "err", err)
	}
}

func decode(raw []byte) (source.Tables, source.Metadata, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, source.Metadata{}, fmt.Errorf("decode cached sheet: %w", err)
	}
	return p.Tables, p.Meta, nil
}
