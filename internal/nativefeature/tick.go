// Package nativefeature implements C10: the built-in event-bus
// subscribers every KAIREI system carries regardless of what a user's
// DSL declares — a Tick generator and a metrics collector.
package nativefeature

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kairei-run/kairei/internal/eventbus"
)

// cronParser accepts the same standard 5-field cron expressions as
// internal/scheduler's Task.NextRun.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DefaultTickInterval is used when neither an interval nor a cron
// expression is configured.
const DefaultTickInterval = time.Second

// TickGenerator publishes Tick{delta_time: Float} on a configurable
// cadence (spec.md §4.2's pre-registered built-in event). Grounded on
// internal/scheduler.Scheduler's mutex-guarded running/stopCh/WaitGroup
// shutdown idiom, collapsed to a single recurring cadence instead of
// scheduler's per-task timer map since there is exactly one tick stream
// per system.
type TickGenerator struct {
	logger   *slog.Logger
	bus      *eventbus.Bus
	interval time.Duration
	schedule cron.Schedule // non-nil when a cron expression drives cadence

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewTickGenerator builds a tick generator. cronExpr, when non-empty and
// parseable, takes precedence over interval; an unparseable expression
// logs a warning and falls back to interval. A non-positive interval
// defaults to DefaultTickInterval.
func NewTickGenerator(logger *slog.Logger, bus *eventbus.Bus, interval time.Duration, cronExpr string) *TickGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &TickGenerator{logger: logger, bus: bus, interval: interval}
	if cronExpr != "" {
		sched, err := cronParser.Parse(cronExpr)
		if err != nil {
			logger.Warn("invalid tick_cron, falling back to tick_interval", "cron", cronExpr, "error", err)
		} else {
			g.schedule = sched
		}
	}
	if g.interval <= 0 {
		g.interval = DefaultTickInterval
	}
	return g
}

// Start begins publishing ticks in a background goroutine. It is a
// no-op if already running.
func (g *TickGenerator) Start(ctx context.Context) {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.stopCh = make(chan struct{})
	g.mu.Unlock()

	g.wg.Add(1)
	go g.run(ctx)

	g.logger.Debug("tick generator started", "interval", g.interval, "cron", g.schedule != nil)
}

func (g *TickGenerator) run(ctx context.Context) {
	defer g.wg.Done()
	last := time.Now()
	for {
		timer := time.NewTimer(g.nextWait(last))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-g.stopCh:
			timer.Stop()
			return
		case now := <-timer.C:
			delta := now.Sub(last).Seconds()
			last = now
			if g.bus != nil {
				_ = g.bus.Publish(eventbus.NewEvent(eventbus.SystemType(eventbus.TypeTick), map[string]eventbus.Value{
					"delta_time": eventbus.Float(delta),
				}))
			}
		}
	}
}

func (g *TickGenerator) nextWait(last time.Time) time.Duration {
	if g.schedule != nil {
		d := time.Until(g.schedule.Next(last))
		if d < 0 {
			d = 0
		}
		return d
	}
	return g.interval
}

// Stop halts tick publishing and waits for the background goroutine to
// exit. It is a no-op if not running.
func (g *TickGenerator) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	close(g.stopCh)
	g.mu.Unlock()

	g.wg.Wait()
	g.logger.Debug("tick generator stopped")
}
