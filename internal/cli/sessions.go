package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sessionsUser  string
	sessionsLimit int
	historyUser   string
	historyPage   int
	historyLimit  int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions for a user",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show the turn log of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsUser, "user", "u", "cli", "user id")
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "max sessions")

	historyCmd.Flags().StringVarP(&historyUser, "user", "u", "cli", "user id")
	historyCmd.Flags().IntVarP(&historyPage, "page", "p", 1, "page number")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "turns per page (0 for default)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	chat, err := getChatService(ctx)
	if err != nil {
		return err
	}

	sessions, err := chat.ListSessions(ctx, sessionsUser, 0, sessionsLimit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	for _, s := range sessions {
		state := "open"
		if s.EndTime != nil {
			state = "ended " + s.EndTime.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-40s  started %s  (%s)\n",
			s.ID, s.Name, s.StartTime.Format("2006-01-02 15:04"), state)
	}

	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	chat, err := getChatService(ctx)
	if err != nil {
		return err
	}

	page, err := chat.GetHistory(ctx, args[0], historyUser, historyPage, historyLimit)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}

	for _, turn := range page.Turns {
		fmt.Printf("[%s] %s: %s\n", turn.CreatedAt.Format("15:04:05"), turn.Role, turn.Content)
		if verbose && len(turn.Sources) > 0 {
			fmt.Printf("  sources: %v\n", turn.Sources)
		}
	}
	if page.HasMore {
		fmt.Printf("\n(%d turns total, more on page %d)\n", page.Total, historyPage+1)
	}

	return nil
}
