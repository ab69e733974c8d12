package logger_test

import (
	"errors"

	"github.com/wonny/africa-covid/backend/pkg/config"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Ingestion started")
	log.Warnf("Retry attempt %d of %d", 2, 3)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{Env: "production", LogLevel: "info", LogFormat: "json"})

	log.Module("ingest").WithFields(map[string]interface{}{
		"source": "confirmed",
		"rows":   289,
	}).Info("Source fetched")

	log.WithError(errors.New("timeout")).Error("Refresh failed")
}
