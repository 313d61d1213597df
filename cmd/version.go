package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/answerdock/answerdock/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(*cobra.Command, []string) error {
			fmt.Printf("Answerdock %s\n", AppVersion)
			fmt.Printf("Build Time: %s\n", BuildTime)
			fmt.Printf("Git Commit: %s\n", GitCommit)
			fmt.Println()
			fmt.Println("Configuration:")
			fmt.Printf("  Provider: %s\n", cfg.Provider)
			fmt.Printf("  Model: %s\n", cfg.ModelName)
			fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
			fmt.Printf("  Store: %s\n", cfg.StoreDir)
			return nil
		},
	}
}
