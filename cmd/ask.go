package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/answerdock/answerdock/internal/app"
	"github.com/answerdock/answerdock/internal/config"
	"github.com/answerdock/answerdock/internal/log"
)

// NewAskCmd creates the ask command.
func NewAskCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cfg, logger, strings.Join(args, " "))
		},
	}
}

func runAsk(ctx context.Context, cfg *config.Config, logger log.Logger, question string) error {
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

	// One-shot questions get a throwaway session.
	ans, err := a.Engine.Answer(ctx, question, uuid.NewString())
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}

	fmt.Println(ans.Text)
	if len(ans.References) > 0 {
		fmt.Println()
		fmt.Println("References:")
		for _, ref := range ans.References {
			line := fmt.Sprintf("  [%s] %s", ref.ChunkID, ref.Source)
			if ref.Page != "" {
				line += fmt.Sprintf(", page %s", ref.Page)
			}
			if ref.Link != "" {
				line += " " + ref.Link
			}
			fmt.Println(line)
		}
	}
	return nil
}
