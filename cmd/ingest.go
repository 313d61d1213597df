package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/answerdock/answerdock/internal/app"
	"github.com/answerdock/answerdock/internal/config"
	"github.com/answerdock/answerdock/internal/log"
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Index documents from files or directories",
		Long: `Ingest reads plain-text documents (.txt, .md), splits them into
chunks, embeds them, and adds them to the local index. Directories
are walked recursively, honoring their .gitignore. Re-ingesting an
unchanged document is a no-op.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cfg, logger, args)
		},
	}
}

func runIngest(ctx context.Context, cfg *config.Config, logger log.Logger, paths []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	totalAdded := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}

		if info.IsDir() {
			result, err := a.Ingest.IngestDir(ctx, path)
			if err != nil {
				return fmt.Errorf("ingesting directory %s: %w", path, err)
			}
			fmt.Printf("%s: %d files ingested, %d skipped, %d failed, %d chunks added\n",
				path, result.FilesIngested, result.FilesSkipped, result.FilesFailed, result.ChunksAdded)
			totalAdded += result.ChunksAdded
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		added, err := a.Ingest.IngestText(ctx, string(content), filepath.Base(path), "", absPath)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		fmt.Printf("%s: %d chunks added\n", path, added)
		totalAdded += added
	}

	fmt.Printf("index now holds %d chunks (%d added)\n", a.Store.Count(), totalAdded)
	return nil
}
