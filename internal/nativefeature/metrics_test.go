package nativefeature

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kairei-run/kairei/internal/eventbus"
)

func TestCollectorCountsEventsByCategoryAndType(t *testing.T) {
	bus := eventbus.New(16)
	c := NewCollector(nil, bus, time.Hour, nil) // long interval: assert via Snapshot, not the publish loop
	c.Start(context.Background())
	defer c.Stop()

	_ = bus.Publish(eventbus.NewEvent(eventbus.SystemType(eventbus.TypeTick), map[string]eventbus.Value{
		"delta_time": eventbus.Float(0.5),
	}))
	_ = bus.Publish(eventbus.NewEvent(eventbus.LifecycleType(eventbus.TypeAgentAdded), nil))

	deadline := time.Now().Add(time.Second)
	for {
		snap := c.Snapshot()
		if snap.TotalEvents >= 2 {
			if snap.CategoryCounts["system"] != 1 || snap.CategoryCounts["lifecycle"] != 1 {
				t.Fatalf("unexpected category counts: %+v", snap.CategoryCounts)
			}
			if snap.TypeCounts[eventbus.TypeTick] != 1 || snap.TypeCounts[eventbus.TypeAgentAdded] != 1 {
				t.Fatalf("unexpected type counts: %+v", snap.TypeCounts)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for events to be observed, got %+v", snap)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCollectorPublishesMetricsSummary(t *testing.T) {
	bus := eventbus.New(16)
	recv, _ := bus.Subscribe()
	defer recv.Close()

	c := NewCollector(nil, bus, 5*time.Millisecond, nil)
	c.Start(context.Background())
	defer c.Stop()

	deadline := time.Now().Add(time.Second)
	for {
		ev, err := recv.Recv()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if ev.Type.Category == eventbus.CategorySystem && ev.Type.Name == eventbus.TypeMetricsSummary {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for MetricsSummary")
		}
	}
}

func TestCollectorPersistsSnapshots(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "metrics.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	bus := eventbus.New(16)
	c := NewCollector(nil, bus, 5*time.Millisecond, store)
	c.Start(context.Background())

	_ = bus.Publish(eventbus.NewEvent(eventbus.SystemType(eventbus.TypeTick), map[string]eventbus.Value{
		"delta_time": eventbus.Float(1),
	}))

	time.Sleep(30 * time.Millisecond)
	c.Stop()

	snaps, err := store.(*sqliteStore).RecentSnapshots(10)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(snaps) == 0 {
		t.Fatal("expected at least one persisted snapshot")
	}
}

func TestCollectorNoBusIsNoop(t *testing.T) {
	c := NewCollector(nil, nil, time.Second, nil)
	c.Start(context.Background()) // must not panic
	c.Stop()
}
