package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/skingap/skingap/internal/config"
	"github.com/skingap/skingap/internal/derive"
	"github.com/skingap/skingap/internal/ingest"
	"github.com/skingap/skingap/internal/itemcache"
	"github.com/skingap/skingap/internal/refprice"
	"github.com/skingap/skingap/internal/router"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	store, err := refprice.NewFileUpdateStore(cfg.StatePath)
	if err != nil {
		log.Fatal("Failed to open state file:", err)
	}

	table := refprice.NewTable(refprice.NewHTTPSource(cfg.PriceSourceURL), store, cfg.Freshness)

	caches := itemcache.NewRegistry()
	rt := router.New(caches, cfg.Debug)

	pref := derive.PrefAsk
	if cfg.Preference == "bid" {
		pref = derive.PrefBid
	}
	deriver := derive.New(table, pref, caches)

	// Warm the table before serving; a failed load still starts the
	// daemon, quotes degrade to zero references until the sweep lands.
	if !table.EnsureFresh(context.Background()) {
		log.Println("Reference table unavailable at startup, will retry on the sweep")
	}

	// Hourly sweep keeps the table inside the freshness window without
	// waiting for the next quote to trip the staleness check.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 1h", func() {
		table.EnsureFresh(context.Background())
	}); err != nil {
		log.Fatal("Failed to schedule staleness sweep:", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := ingest.New(caches, rt, table, deriver)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, server.Routes()))
}
