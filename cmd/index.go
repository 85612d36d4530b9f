package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medichat/medichat/internal/app"
	"github.com/medichat/medichat/internal/config"
)

var indexCmd = &cobra.Command{
	Use:   "index <file.pdf> [file.pdf...]",
	Short: "Index PDF files into the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(parent context.Context, paths []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	failed := 0
	for _, path := range paths {
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			fmt.Fprintf(os.Stderr, "skipping %s: only PDF files are supported\n", path)
			failed++
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
			failed++
			continue
		}

		report, err := a.Indexer.Index(ctx, data, filepath.Base(path))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to index %s: %v\n", path, err)
			failed++
			continue
		}

		fmt.Printf("indexed %s: %d chunks (%d pages, id %s)\n",
			report.Document.Name, report.Chunks, report.Document.Pages, report.Document.ID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
