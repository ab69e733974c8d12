package config_test

import (
	"fmt"

	"github.com/wonny/africa-covid/backend/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Tracked continents: %v\n", cfg.Ingest.TrackedContinents)
	fmt.Printf("Refresh schedule: %s\n", cfg.Ingest.RefreshSchedule)
	fmt.Printf("Archive enabled: %v\n", cfg.Database.ArchiveEnabled())
}
