package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seon-creator/SSG-EDU-Project/internal/db"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

const titlePromptTemplate = `Generate a concise title of at most five words for a
medical assistant conversation that opens with the exchange below. Respond with
the title only: no quotes, no punctuation at the end, no explanations.

Question:
%s

Answer:
%s

Title:`

// SynthesizeTitle derives a short label from a session's first exchange.
// Pure with respect to session state; the cheaper title model is used.
func (s *ChatService) SynthesizeTitle(ctx context.Context, question, answer string) (string, error) {
	prompt := fmt.Sprintf(titlePromptTemplate, question, answer)

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	title, err := s.titleModel.Generate(genCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: synthesize title: %v", ErrUpstream, err)
	}

	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	if title == "" {
		return "", fmt.Errorf("%w: model returned empty title", ErrUpstream)
	}
	return title, nil
}

// TitleSession synthesizes a title from the session's first question/answer
// pair and saves it as the session name.
func (s *ChatService) TitleSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	if _, err := s.authorize(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	turns, err := s.store.ListTurns(ctx, sessionID, 0, 2)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	if len(turns) < 2 || turns[0].Role != models.RoleUser || turns[1].Role != models.RoleAssistant {
		return nil, fmt.Errorf("%w: session has no completed exchange", ErrState)
	}

	title, err := s.SynthesizeTitle(ctx, turns[0].Content, turns[1].Content)
	if err != nil {
		return nil, err
	}

	session, err := s.store.UpdateSessionName(ctx, sessionID, title)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("update session name: %w", err)
	}
	return session, nil
}
