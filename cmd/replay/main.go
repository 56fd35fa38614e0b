package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"GovPulse/internal/feed"
	"GovPulse/pkg/config"
	applogger "GovPulse/pkg/logger"
	"GovPulse/pkg/stream"
)

// replay publishes a recorded tick CSV into the tick stream, pacing rows by
// their recorded gaps (--realtime) or at a fixed rate derived from --speed.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	file := flag.String("file", "", "tick CSV: timestamp,symbol,price,size,side")
	speed := flag.Float64("speed", 1.0, "replay speed multiplier")
	realtime := flag.Bool("realtime", false, "pace by recorded timestamp gaps")
	flag.Parse()

	if *file == "" {
		log.Fatal("--file is required")
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	client, err := stream.NewClient(
		stream.WithAddr(cfg.Stream.Addr),
		stream.WithAuth(cfg.Stream.Password, cfg.Stream.DB),
		stream.WithPool(cfg.Stream.PoolSize, 2),
	)
	if err != nil {
		log.Fatalf("stream client: %v", err)
	}
	defer client.Close()

	ticks, err := feed.Load(*file)
	if err != nil {
		log.Fatalf("load replay file: %v", err)
	}
	l.Info("replay loaded",
		applogger.String("file", *file),
		applogger.Int("ticks", len(ticks)),
		applogger.Float64("speed", *speed),
		applogger.Bool("realtime", *realtime),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r := feed.NewReplayer(client, l)
	r.Speed = *speed
	r.Realtime = *realtime

	n, err := r.Run(ctx, ticks)
	if err != nil && ctx.Err() == nil {
		log.Fatalf("replay failed after %d ticks: %v", n, err)
	}
}
