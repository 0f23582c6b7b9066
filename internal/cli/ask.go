package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seon-creator/SSG-EDU-Project/internal/service"
)

var (
	askUser    string
	askSession string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant a question",
	Long: `Ask the medical assistant a question and stream the answer.

Without --session a new session is created for the question; pass an
existing session id to continue a conversation with its history.

Examples:
  medichat ask "I have had a fever since yesterday, what should I do?"
  medichat ask --session 5f0c... "It has gotten worse overnight"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "cli", "user id to ask as")
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "existing session id to continue")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	chat, err := getChatService(ctx)
	if err != nil {
		return err
	}

	sessionID := askSession
	if sessionID == "" {
		session, err := chat.CreateSession(ctx, askUser, "")
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sessionID = session.ID
		if verbose {
			fmt.Fprintf(os.Stderr, "session: %s\n", sessionID)
		}
	}

	events, errs := chat.StreamAnswer(ctx, sessionID, askUser, args[0])
	var sources []string
	for ev := range events {
		switch ev.Type {
		case service.EventAssistantDelta:
			fmt.Print(ev.Delta)
		case service.EventUserTurn:
			// The question echo is not interesting on a terminal
		}
	}
	if err := <-errs; err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	fmt.Println()

	if verbose {
		history, err := chat.GetHistory(ctx, sessionID, askUser, 1, 0)
		if err == nil && len(history.Turns) > 0 {
			sources = history.Turns[len(history.Turns)-1].Sources
		}
		if len(sources) > 0 {
			fmt.Fprintf(os.Stderr, "\nsources: %v\n", sources)
		}
	}

	return nil
}
