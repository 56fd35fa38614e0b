package stream

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLogOrdering(t *testing.T) {
	m := NewMemoryLog()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := m.Append(ctx, "t", map[string]int{"n": i})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}

	entries, err := m.Read(ctx, "t", CursorEarliest, 10*time.Millisecond, 100)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ID != ids[i] {
			t.Fatalf("entry %d: id %s, want %s", i, e.ID, ids[i])
		}
		if i > 0 && parseID(entries[i].ID) <= parseID(entries[i-1].ID) {
			t.Fatalf("ids not strictly increasing: %s then %s", entries[i-1].ID, e.ID)
		}
	}
}

func TestMemoryLogTailSkipsBacklog(t *testing.T) {
	m := NewMemoryLog()
	ctx := context.Background()

	if _, err := m.Append(ctx, "t", []byte(`{"old":true}`)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A tail read must not observe the backlog.
	entries, err := m.Read(ctx, "t", CursorTail, 10*time.Millisecond, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("tail read saw backlog: %v", entries)
	}
}

func TestMemoryLogBlockingRead(t *testing.T) {
	m := NewMemoryLog()
	ctx := context.Background()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = m.Append(ctx, "t", []byte(`{"n":1}`))
	}()

	start := time.Now()
	entries, err := m.Read(ctx, "t", CursorTail, 500*time.Millisecond, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if time.Since(start) >= 500*time.Millisecond {
		t.Fatalf("read waited full window despite append")
	}
}

func TestMemoryLogCountLimit(t *testing.T) {
	m := NewMemoryLog()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := m.Append(ctx, "t", []byte(`{}`)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := m.Read(ctx, "t", CursorEarliest, 10*time.Millisecond, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(entries))
	}
}
