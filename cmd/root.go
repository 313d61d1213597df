// Package cmd provides the answerdock CLI.
//
// Commands:
//   - serve: HTTP API server
//   - ingest: index documents from files or directories
//   - ask: one-shot question answering
//   - version: version information
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/answerdock/answerdock/internal/config"
	"github.com/answerdock/answerdock/internal/log"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "answerdock",
		Short: "Answerdock - grounded question answering over your documents",
		Long: `Answerdock indexes document text into a local vector store and
answers questions about it with sentence-level citations. Answers
come only from ingested documents; anything unsupported gets a
refusal instead of a guess.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		NewServeCmd(cfg, logger),
		NewIngestCmd(cfg, logger),
		NewAskCmd(cfg, logger),
		NewVersionCmd(cfg),
	)

	return root
}
