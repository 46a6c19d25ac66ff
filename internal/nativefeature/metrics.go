package nativefeature

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kairei-run/kairei/internal/eventbus"
)

// DefaultMetricsInterval is used when no MetricsInterval is configured.
const DefaultMetricsInterval = 10 * time.Second

// Stats holds the rolling event counters the collector maintains,
// shaped after internal/router.Stats (total + per-key breakdown) but
// keyed by event category/type instead of routed model name.
type Stats struct {
	TotalEvents    int64
	CategoryCounts map[string]int64
	TypeCounts     map[string]int64
}

func newStats() Stats {
	return Stats{CategoryCounts: map[string]int64{}, TypeCounts: map[string]int64{}}
}

func (s Stats) clone() Stats {
	out := newStats()
	out.TotalEvents = s.TotalEvents
	for k, v := range s.CategoryCounts {
		out.CategoryCounts[k] = v
	}
	for k, v := range s.TypeCounts {
		out.TypeCounts[k] = v
	}
	return out
}

// Store persists periodic metrics snapshots. sqliteStore implements it;
// nil is a valid Store (no persistence).
type Store interface {
	RecordSnapshot(ts time.Time, stats Stats) error
	Close() error
}

// Collector subscribes to the event bus, maintains rolling counters
// (grounded on internal/router.Router.recordDecision's mutex-guarded
// map-of-counts idiom), exposes them as Prometheus gauges/counters, and
// periodically publishes a MetricsSummary event (spec.md §3's System
// category) carrying the same counts. Metrics are kept on an
// instance-scoped prometheus.Registry rather than the package-global
// MustRegister style the teacher's warren/pkg/metrics uses, since a
// process may run more than one System (and therefore more than one
// Collector) concurrently, e.g. in tests.
type Collector struct {
	logger   *slog.Logger
	bus      *eventbus.Bus
	interval time.Duration
	store    Store

	registry      *prometheus.Registry
	eventsTotal   *prometheus.CounterVec
	lastTickDelta prometheus.Gauge

	mu    sync.Mutex
	stats Stats

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector builds a metrics collector. store may be nil to disable
// persistence. A non-positive interval defaults to
// DefaultMetricsInterval.
func NewCollector(logger *slog.Logger, bus *eventbus.Bus, interval time.Duration, store Store) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultMetricsInterval
	}

	registry := prometheus.NewRegistry()
	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kairei_events_total",
		Help: "Total number of events observed on the event bus, by category and type",
	}, []string{"category", "type"})
	lastTickDelta := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kairei_last_tick_delta_seconds",
		Help: "delta_time of the most recently observed Tick event",
	})
	registry.MustRegister(eventsTotal, lastTickDelta)

	return &Collector{
		logger:        logger,
		bus:           bus,
		interval:      interval,
		store:         store,
		registry:      registry,
		eventsTotal:   eventsTotal,
		lastTickDelta: lastTickDelta,
		stats:         newStats(),
	}
}

// Registry exposes the collector's Prometheus registry, e.g. for an API
// server to mount alongside promhttp.HandlerFor.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Snapshot returns a copy of the current rolling counters.
func (c *Collector) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.clone()
}

// Start begins consuming the event bus and periodically publishing
// MetricsSummary events, both in background goroutines. It is a no-op
// if the collector has no bus.
func (c *Collector) Start(ctx context.Context) {
	if c.bus == nil {
		return
	}
	c.stopCh = make(chan struct{})

	recv, _ := c.bus.Subscribe()

	c.wg.Add(2)
	go c.consume(ctx, recv)
	go c.publishLoop(ctx)

	c.logger.Debug("metrics collector started", "interval", c.interval)
}

// consume drains recv via a detached reader goroutine, so that Stop can
// return promptly on ctx/stopCh instead of waiting on Receiver.Recv.
// Closing recv wakes the reader's pending Recv immediately, so it exits
// right after this function returns; closing done lets the reader's
// final send give up once nothing is left to read it.
func (c *Collector) consume(ctx context.Context, recv *eventbus.Receiver) {
	defer c.wg.Done()
	defer recv.Close()

	type result struct {
		ev  eventbus.Event
		err error
	}
	results := make(chan result, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev, err := recv.Recv()
			select {
			case results <- result{ev, err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case r := <-results:
			if r.err != nil {
				var lagged eventbus.Lagged
				if errors.As(r.err, &lagged) {
					c.logger.Warn("metrics collector lagged", "dropped", lagged.Count)
					continue
				}
				return // receiver closed or bus shut down
			}
			c.observe(r.ev)
		}
	}
}

func (c *Collector) observe(ev eventbus.Event) {
	category := categoryName(ev.Type.Category)

	c.mu.Lock()
	c.stats.TotalEvents++
	c.stats.CategoryCounts[category]++
	if ev.Type.Name != "" {
		c.stats.TypeCounts[ev.Type.Name]++
	}
	c.mu.Unlock()

	c.eventsTotal.WithLabelValues(category, ev.Type.Name).Inc()

	if ev.Type.Category == eventbus.CategorySystem && ev.Type.Name == eventbus.TypeTick {
		if dt, ok := ev.Param("delta_time"); ok {
			if f, ok := dt.AsFloat(); ok {
				c.lastTickDelta.Set(f)
			}
		}
	}
}

func (c *Collector) publishLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.publishSummary(now)
		}
	}
}

func (c *Collector) publishSummary(now time.Time) {
	snap := c.Snapshot()

	params := map[string]eventbus.Value{
		"total_events": eventbus.Int(snap.TotalEvents),
	}
	_ = c.bus.Publish(eventbus.NewEvent(eventbus.SystemType(eventbus.TypeMetricsSummary), params))

	if c.store != nil {
		if err := c.store.RecordSnapshot(now, snap); err != nil {
			c.logger.Error("failed to persist metrics snapshot", "error", err)
		}
	}
}

// Stop halts both background goroutines and waits for them to exit.
func (c *Collector) Stop() {
	if c.stopCh == nil {
		return
	}
	select {
	case <-c.stopCh:
		return // already stopped
	default:
		close(c.stopCh)
	}
	c.wg.Wait()
	c.logger.Debug("metrics collector stopped")
}

func categoryName(cat eventbus.Category) string {
	switch cat {
	case eventbus.CategorySystem:
		return "system"
	case eventbus.CategoryLifecycle:
		return "lifecycle"
	case eventbus.CategoryFeatureStatus:
		return "feature_status"
	case eventbus.CategoryProviderStatus:
		return "provider_status"
	case eventbus.CategoryMessage:
		return "message"
	case eventbus.CategoryFailure:
		return "failure"
	case eventbus.CategoryRequest:
		return "request"
	case eventbus.CategoryResponseSuccess:
		return "response_success"
	case eventbus.CategoryResponseFailure:
		return "response_failure"
	case eventbus.CategoryCustom:
		return "custom"
	case eventbus.CategoryStateUpdated:
		return "state_updated"
	default:
		return "unknown"
	}
}
