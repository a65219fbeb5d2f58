package internal

import (
	"fmt"
	"testing"
)

func TestHistoryBoundingAndOrder(t *testing.T) {
	const capacity = 5
	history := NewHistory(capacity)
	for i := 1; i <= capacity+3; i++ {
		history.Append(NewChat("alice", fmt.Sprintf("m%d", i)))
	}

	snapshot := history.Snapshot()
	if len(snapshot) != capacity {
		t.Fatalf("expected %d entries, got %d", capacity, len(snapshot))
	}
	for i, msg := range snapshot {
		want := fmt.Sprintf("m%d", i+4)
		if msg.Content != want {
			t.Errorf("snapshot[%d] = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestHistoryOrderAcrossManyEvictions(t *testing.T) {
	const capacity = 4
	history := NewHistory(capacity)
	for i := 1; i <= capacity*5+1; i++ {
		history.Append(NewChat("a", fmt.Sprintf("m%d", i)))
	}

	snapshot := history.Snapshot()
	if len(snapshot) != capacity {
		t.Fatalf("expected %d entries, got %d", capacity, len(snapshot))
	}
	for i, msg := range snapshot {
		want := fmt.Sprintf("m%d", capacity*4+2+i)
		if msg.Content != want {
			t.Errorf("snapshot[%d] = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestHistorySnapshotIsIsolated(t *testing.T) {
	history := NewHistory(10)
	history.Append(NewChat("a", "one"))

	snapshot := history.Snapshot()
	history.Append(NewChat("a", "two"))

	if len(snapshot) != 1 {
		t.Fatalf("snapshot grew after a later append: %d", len(snapshot))
	}
	snapshot[0].Content = "mutated"
	if history.Snapshot()[0].Content != "one" {
		t.Fatalf("mutating a snapshot leaked into the buffer")
	}
}

func TestHistoryConcurrentAppends(t *testing.T) {
	history := NewHistory(50)
	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				history.Append(NewChat("w", fmt.Sprintf("%d-%d", g, i)))
				history.Snapshot()
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}
	if history.Len() != 50 {
		t.Fatalf("expected the buffer pinned at capacity, got %d", history.Len())
	}
}
