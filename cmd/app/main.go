package main

import (
	"flag"
	"log"
	"os"

	"GovPulse/internal/di"
	"GovPulse/pkg/config"
	"GovPulse/pkg/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("govpulse %s env=%s stream=%s start=%s", server.Version, cfg.Environment, cfg.Stream.Addr, cfg.Stream.Start)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
