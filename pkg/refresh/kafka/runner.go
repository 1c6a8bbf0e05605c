// Package kafka consumes sheet update events and redraws the affected maps.
package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	mylog "github.com/mohammed-shakir/mapsheet/internal/logger"
)

var ErrNoTarget = errors.New("event names neither map nor key")

// Maps is the part of the map registry a refresh touches.
type Maps interface {
	NamesForKey(key string) []string
	Invalidate(ctx context.Context, name string) error
	Refresh(ctx context.Context, name string) error
}

type Runner struct {
	log      *slog.Logger
	cfg      Config
	maps     Maps
	ms       *metricSet
	ver      *versionDedupe
	now      func() time.Time
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
}

func New(cfg Config, m Maps, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		log:    opts.Logger,
		cfg:    cfg,
		maps:   m,
		ms:     newMetricSet(opts.Register),
		ver:    newVersionDedupe(1024),
		now:    time.Now,
		assign: map[int32]struct{}{},
	}
}

func (r *Runner) saramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "mapsheet"
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	if r.cfg.TLS {
		cfg.Net.TLS.Enable = true
		cfg.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if s := r.cfg.SASL; s.Enable {
		cfg.Net.SASL.Enable = true
		cfg.Net.SASL.User = s.Username
		cfg.Net.SASL.Password = s.Password
		cfg.Net.SASL.Mechanism = sarama.SASLMechanism(strings.ToUpper(s.Mechanism))
		if cfg.Net.SASL.Mechanism == "" {
			cfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}
	return cfg
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("refresh runner disabled")
		return nil
	}
	if r.maps == nil {
		return errors.New("kafka runner: maps dependency is required")
	}
	cfg := r.saramaConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("kafka config: %w", err)
	}

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	h := &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(true)
			r.assign = map[int32]struct{}{}
			for _, parts := range sess.Claims() {
				for _, p := range parts {
					r.assign[p] = struct{}{}
				}
			}
			r.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(false)
			r.assign = map[int32]struct{}{}
			r.assignMu.Unlock()
		},
		process: r.handleMessage,
		log:     r.log,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("kafka refresh runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("kafka refresh runner stopped")
}

func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := r.now()
	if !msg.Timestamp.IsZero() {
		r.ms.lagGauge.Set(start.Sub(msg.Timestamp).Seconds())
	}

	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		r.ms.msgs.WithLabelValues("error").Inc()
		return fmt.Errorf("decode: %w", err)
	}
	if ev.Map == "" && ev.Key == "" {
		r.ms.msgs.WithLabelValues("error").Inc()
		return ErrNoTarget
	}
	err := r.apply(ctx, ev)
	r.observe(ev.Op, err, r.now().Sub(start))
	return err
}

func (r *Runner) targets(ev Event) []string {
	if ev.Map != "" {
		return []string{ev.Map}
	}
	return r.maps.NamesForKey(ev.Key)
}

// apply invalidates and redraws every targeted map whose version advanced.
func (r *Runner) apply(ctx context.Context, ev Event) error {
	names := r.targets(ev)
	if len(names) == 0 {
		r.ms.action("", "no_target")
		r.log.Debug("refresh event matched no map", "key", ev.Key)
		return nil
	}
	var errs []error
	for _, name := range names {
		if !r.ver.shouldApply(name, ev.Version) {
			r.ms.action(name, "skip_version")
			continue
		}
		mctx := mylog.WithMap(mylog.WithComponent(ctx, "refresh"), name)
		if err := r.maps.Invalidate(mctx, name); err != nil {
			r.log.WarnContext(mctx, "cache invalidation failed", "err", err)
		}
		if err := r.maps.Refresh(mctx, name); err != nil {
			r.ms.action(name, "failed")
			errs = append(errs, err)
			continue
		}
		r.ms.applied(name, ev.Version, r.now())
	}
	return errors.Join(errs...)
}

func (r *Runner) observe(op string, err error, dur time.Duration) {
	if op == "" {
		op = "update"
	}
	if err != nil {
		r.ms.msgs.WithLabelValues("error").Inc()
	} else {
		r.ms.msgs.WithLabelValues("ok").Inc()
	}
	r.ms.proc.WithLabelValues(op).Observe(dur.Seconds())
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
	log     *slog.Logger
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

// ConsumeClaim marks every message, failed or not. A failed refresh leaves
// the previous drawing in place and the next event retries it.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			h.log.Warn("refresh message failed",
				"partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
