package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/seon-creator/SSG-EDU-Project/internal/llm"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// validateTurnContent trims the content and enforces the length bound.
func validateTurnContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrValidation)
	}
	if utf8.RuneCountInString(content) > models.MaxTurnContentLen {
		return "", fmt.Errorf("%w: content exceeds %d characters", ErrValidation, models.MaxTurnContentLen)
	}
	return content, nil
}

// appendTurnLocked persists a turn with a fresh monotonic timestamp after
// checking the alternation invariant. The caller must hold the session lock.
func (s *ChatService) appendTurnLocked(ctx context.Context, sessionID string, role models.Role, content string, sources []string) (*models.Turn, error) {
	last, err := s.store.LastTurn(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("last turn: %w", err)
	}

	if last == nil {
		if role != models.RoleUser {
			return nil, fmt.Errorf("%w: conversation must start with a user turn", ErrState)
		}
	} else if last.Role == role {
		return nil, fmt.Errorf("%w: %s turn cannot follow another %s turn", ErrState, role, role)
	}

	now := time.Now().UTC()
	if last != nil && !now.After(last.CreatedAt) {
		// Clock skew or sub-resolution appends; keep timestamps strictly
		// increasing within the session.
		now = last.CreatedAt.Add(time.Microsecond)
	}

	turn, err := s.store.AppendTurn(ctx, &models.Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Sources:   sources,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	return turn, nil
}

// fullHistory returns every turn of the session in ascending order.
func (s *ChatService) fullHistory(ctx context.Context, sessionID string) ([]models.Turn, error) {
	total, err := s.store.CountTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count turns: %w", err)
	}
	if total == 0 {
		return nil, nil
	}
	turns, err := s.store.ListTurns(ctx, sessionID, 0, total)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

// buildMessages assembles the model context: persona plus retrieved
// fragments as the system message, then the prior history, then the new
// question.
func buildMessages(history []models.Turn, fragments []models.Fragment, question string) []llm.Message {
	var system strings.Builder
	system.WriteString(personaPrompt)

	if len(fragments) > 0 {
		system.WriteString("\n\nRelevant knowledge:\n")
		for _, f := range fragments {
			system.WriteString("---\n")
			if f.Source != "" {
				system.WriteString("Source: " + f.Source + "\n")
			}
			system.WriteString(f.Content)
			system.WriteString("\n")
		}
	} else {
		system.WriteString("\n\nNo knowledge-base passages matched this question. Answer from general medical knowledge and be explicit about uncertainty.")
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system.String()})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: question})

	return messages
}
