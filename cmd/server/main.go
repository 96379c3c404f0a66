package main

import (
	"log"

	"statlab/adapters/file"
	"statlab/adapters/history"
	"statlab/adapters/plot"
	"statlab/internal"
	"statlab/internal/config"
	"statlab/internal/engine"
	"statlab/ports"
	"statlab/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.DefaultLogger

	// The history store is optional: without a DSN, runs simply are not
	// recorded.
	var store ports.HistoryStore
	if cfg.History.DSN != "" {
		pg, err := history.NewPostgresStore(cfg.History.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to history store: %v", err)
		}
		defer pg.Close()
		store = pg
		logger.Info("Analysis history store connected")
	} else {
		logger.Info("HISTORY_DATABASE_URL not set, analysis history disabled")
	}

	eng := engine.New(cfg, logger, store)
	server := ui.NewServer(cfg, eng, file.NewReader(), plot.NewRenderer(), store, logger)

	logger.Info("Starting statlab server on port %s", cfg.Server.Port)
	log.Fatal(server.Run(cfg.Server.Port))
}
