package cmd

import (
	"fmt"

	"github.com/answerdock/answerdock/internal/config"
	"github.com/answerdock/answerdock/internal/log"
)

// Execute is the main entry point for the answerdock CLI.
func Execute() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	return NewRootCmd(cfg, logger).Execute()
}
