package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/firebase/genkit/go/ai"
	"github.com/spf13/cobra"

	"github.com/medichat/medichat/internal/app"
	"github.com/medichat/medichat/internal/config"
)

var askSessionID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question against the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "continue an existing session instead of starting a new one")
	rootCmd.AddCommand(askCmd)
}

func runAsk(parent context.Context, question string) error {
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

	sessionID := askSessionID
	if sessionID == "" {
		sess, err := a.Sessions.Create(ctx, "", cfg.ModelName)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		sessionID = sess.ID
	}

	// Stream the answer as it arrives; the reply carries citations for
	// the footer.
	streamed := false
	reply, err := a.Engine.RespondStream(ctx, sessionID, question,
		func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			if chunk == nil {
				return nil
			}
			for _, part := range chunk.Content {
				if part.Text != "" {
					fmt.Print(part.Text)
					streamed = true
				}
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	if !streamed {
		fmt.Print(reply.Answer)
	}
	fmt.Println()

	if len(reply.Citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, c := range reply.Citations {
			fmt.Printf("  [%s, chunk %d] %s\n", c.DocumentName, c.ChunkIndex, c.Excerpt)
		}
	}

	if askSessionID == "" {
		fmt.Printf("\nSession: %s (continue with --session %s)\n", sessionID, sessionID)
	}
	return nil
}
