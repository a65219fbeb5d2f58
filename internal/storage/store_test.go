package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := store.RecordEvent(ctx, "login", "alice", "127.0.0.1:54321"); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := store.RecordEvent(ctx, "file", "alice", "notes.txt (42 bytes)"); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := store.RecordEvent(ctx, "disconnect", "alice", "peer closed connection"); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	events, err := store.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// newest first
	if events[0].Kind != "disconnect" || events[2].Kind != "login" {
		t.Fatalf("unexpected order: %s .. %s", events[0].Kind, events[2].Kind)
	}
	if events[2].Username != "alice" || events[2].Detail == "" {
		t.Fatalf("unexpected login event: %+v", events[2])
	}
}

func TestRecentEventsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := store.RecordEvent(ctx, "login", "bob", ""); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}
	events, err := store.RecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(events))
	}
}

func TestPruneBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := store.RecordEvent(ctx, "login", "carol", ""); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	pruned, err := store.PruneBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if pruned != 0 {
		t.Fatalf("expected nothing pruned, got %d", pruned)
	}

	pruned, err = store.PruneBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned, got %d", pruned)
	}

	events, err := store.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty log after prune, got %d", len(events))
	}
}
