package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"MomentumScreener/internal/di"
	"MomentumScreener/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	check := flag.Bool("check", false, "validate the config and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *check {
		fmt.Printf("config ok: env=%s history=%s fundamentals=%s\n",
			cfg.Environment, cfg.Providers.History, cfg.Providers.Fundamentals)
		return
	}

	log.Printf("env=%s history=%s fundamentals=%s max_symbols=%d schedule=%q",
		cfg.Environment, cfg.Providers.History, cfg.Providers.Fundamentals,
		cfg.Screening.MaxSymbols, cfg.Screening.Schedule)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT or SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
