package main

import (
	"log"
	"net/http"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()

	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	settings := NewSettingsStore()

	if cfg.SlackBotToken != "" {
		api := slack.New(cfg.SlackBotToken)
		StartReportScheduler(cfg, store, api)
	}

	srv := NewServer(cfg, store, settings)
	log.Printf("Starting QC dashboard API on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Handler()); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}
