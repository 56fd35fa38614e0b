package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"GovPulse/internal/domain/models"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/stream"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestLoadSortsAndNormalizes(t *testing.T) {
	path := writeCSV(t, "timestamp,symbol,price,size,side\n"+
		"1700000002,BTCUSDT,50010.5,0.25,sell\n"+
		"1700000001000,BTCUSDT,50000.0,0.5,buy\n"+
		"2023-11-14T22:13:24Z,BTCUSDT,50020.0,0.1,buy\n"+
		"1700000003,ETHUSDT,3000.0,1.0,\n")

	ticks, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ticks) != 4 {
		t.Fatalf("want 4 ticks, got %d", len(ticks))
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Timestamp < ticks[i-1].Timestamp {
			t.Fatalf("ticks not sorted: %d < %d", ticks[i].Timestamp, ticks[i-1].Timestamp)
		}
	}
	// seconds are promoted to milliseconds
	if ticks[0].Timestamp != 1700000001000 {
		t.Fatalf("first timestamp = %d", ticks[0].Timestamp)
	}
	// RFC3339 timestamps land on the same millisecond scale
	if ticks[3].Timestamp != 1700000004000 {
		t.Fatalf("rfc3339 timestamp = %d", ticks[3].Timestamp)
	}
	if ticks[2].Side != "unknown" {
		t.Fatalf("missing side should default to unknown, got %q", ticks[2].Side)
	}
	for _, tk := range ticks {
		if tk.Source != "replay" {
			t.Fatalf("source = %q", tk.Source)
		}
		if tk.StreamID == "" {
			t.Fatal("stream id missing")
		}
	}
}

func TestLoadRejectsMalformedRow(t *testing.T) {
	path := writeCSV(t, "1700000001,BTCUSDT,notaprice,0.5,buy\n")
	if _, err := Load(path); err == nil {
		t.Fatal("want error for malformed price")
	}
}

func TestRunPublishesAllTicks(t *testing.T) {
	log := stream.NewMemoryLog()
	r := NewReplayer(log, newTestLogger(t))
	r.Speed = 1000 // minimal pacing

	ticks := []*models.Tick{
		{StreamID: "a", Timestamp: 1, Symbol: "X", Price: 1, Size: 1, Side: "buy", Source: "replay"},
		{StreamID: "b", Timestamp: 2, Symbol: "X", Price: -1, Size: 1, Side: "sell", Source: "replay"},
	}
	n, err := r.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 2 {
		t.Fatalf("published = %d, want 2", n)
	}
	if got := log.Len(models.TopicTicks); got != 2 {
		t.Fatalf("stream entries = %d, want 2", got)
	}
}

func TestRunSkipsInvalidTick(t *testing.T) {
	log := stream.NewMemoryLog()
	r := NewReplayer(log, newTestLogger(t))
	r.Speed = 1000

	ticks := []*models.Tick{
		{StreamID: "a", Timestamp: 1, Symbol: "", Price: 1, Size: 1, Side: "buy"},
		{StreamID: "b", Timestamp: 2, Symbol: "X", Price: 1, Size: 1, Side: "buy"},
	}
	n, err := r.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("published = %d, want 1", n)
	}
}
