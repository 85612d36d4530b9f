package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/medichat/medichat/db"
	"github.com/medichat/medichat/internal/config"
	"github.com/medichat/medichat/internal/session"
	"github.com/medichat/medichat/internal/sqlc"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored conversations",
}

func init() {
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSessionStore(cmd.Context(), runSessionsList)
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(cmd.Context(), func(ctx context.Context, store *session.Store) error {
				return runSessionsShow(ctx, store, args[0])
			})
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(cmd.Context(), func(ctx context.Context, store *session.Store) error {
				return runSessionsExport(ctx, store, args[0])
			})
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(cmd.Context(), func(ctx context.Context, store *session.Store) error {
				return runSessionsDelete(ctx, store, args[0])
			})
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "clear <session-id>",
		Short: "Delete a session's messages but keep the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(cmd.Context(), func(ctx context.Context, store *session.Store) error {
				return runSessionsClear(ctx, store, args[0])
			})
		},
	})
	rootCmd.AddCommand(sessionsCmd)
}

// withSessionStore opens the database, runs fn with a session store,
// and closes the pool. Session management does not need the model
// providers, so it skips full application setup.
func withSessionStore(ctx context.Context, fn func(context.Context, *session.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := session.NewStore(sqlc.New(pool), slog.Default())
	return fn(ctx, store)
}

func runSessionsList(ctx context.Context, store *session.Store) error {
	sessions, err := store.List(ctx, 100)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-40s  %3d messages  %s\n",
			s.ID, title, s.MessageCount, formatTime(s.UpdatedAt))
	}
	return nil
}

func runSessionsShow(ctx context.Context, store *session.Store, id string) error {
	sess, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	messages, err := store.Messages(ctx, id)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	fmt.Printf("Session: %s\n", sess.ID)
	if sess.Title != "" {
		fmt.Printf("Title: %s\n", sess.Title)
	}
	fmt.Printf("Created: %s\n", formatTime(sess.CreatedAt))
	fmt.Printf("Messages: %d\n", len(messages))
	fmt.Println()

	for _, msg := range messages {
		role := "You"
		if msg.Role == session.RoleAssistant {
			role = "Medichat"
		}
		fmt.Printf("%s> %s\n", role, msg.Content)
		for _, c := range msg.Citations {
			fmt.Printf("    [%s, chunk %d]\n", c.DocumentName, c.ChunkIndex)
		}
		fmt.Println()
	}
	return nil
}

func runSessionsExport(ctx context.Context, store *session.Store, id string) error {
	sess, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	messages, err := store.Messages(ctx, id)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	export := struct {
		Session  session.Session   `json:"session"`
		Summary  session.Summary   `json:"summary"`
		Messages []session.Message `json:"messages"`
	}{
		Session:  sess,
		Summary:  session.Summarize(sess, messages),
		Messages: messages,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

func runSessionsDelete(ctx context.Context, store *session.Store, id string) error {
	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	fmt.Printf("Deleted session %s\n", id)
	return nil
}

func runSessionsClear(ctx context.Context, store *session.Store, id string) error {
	if _, err := store.Get(ctx, id); err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	deleted, err := store.ClearMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	fmt.Printf("Deleted %d messages from session %s\n", deleted, id)
	return nil
}

// formatTime renders recent timestamps relatively.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
