package main

import (
	"context"
	"log"

	"github.com/sngm3741/building-survey-services/api/internal/config"
	"github.com/sngm3741/building-survey-services/api/internal/logging"
	"github.com/sngm3741/building-survey-services/api/internal/server"
)

func main() {
	cfg := config.Load()

	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logCloser.Close()

	app, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("server setup failed")
	}
	if err := app.Run(); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
