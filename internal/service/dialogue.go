package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/seon-creator/SSG-EDU-Project/internal/llm"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// personaPrompt fixes the assistant's clinical-triage persona. Answers must
// stay grounded and route high-risk symptoms to in-person care.
const personaPrompt = `You are a cautious, empathetic medical triage assistant.
Ground your answers in the provided knowledge passages and the conversation so far.
Never fabricate facts you cannot verify. If symptoms suggest a serious or
rapidly worsening condition (chest pain, difficulty breathing, confusion,
uncontrolled bleeding, signs of stroke), clearly recommend seeing a doctor or
emergency services in person. You are not a substitute for a professional
diagnosis and should say so when appropriate.`

// AnswerResult is a completed dialogue step.
type AnswerResult struct {
	UserTurn      *models.Turn `json:"user_turn"`
	AssistantTurn *models.Turn `json:"assistant_turn"`
	Answer        string       `json:"answer"`
	Sources       []string     `json:"sources"`
}

// dialogueState is the shared pre-work of blocking and streaming answers.
type dialogueState struct {
	userTurn *models.Turn
	messages []llm.Message
	sources  []string
}

// prepareDialogue validates and persists the user turn, retrieves knowledge
// and assembles the model context. Must be called with the session lock held.
//
// If the session's last turn is an unanswered user turn with identical
// content, that turn is reused instead of appended, so a retry after an
// upstream failure does not double-append.
func (s *ChatService) prepareDialogue(ctx context.Context, sessionID, content string) (*dialogueState, error) {
	content, err := validateTurnContent(content)
	if err != nil {
		return nil, err
	}

	history, err := s.fullHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var userTurn *models.Turn
	if n := len(history); n > 0 && history[n-1].Role == models.RoleUser {
		if history[n-1].Content != content {
			return nil, fmt.Errorf("%w: session awaits an assistant reply", ErrState)
		}
		userTurn = &history[n-1]
		history = history[:n-1]
	} else {
		userTurn, err = s.appendTurnLocked(ctx, sessionID, models.RoleUser, content, nil)
		if err != nil {
			return nil, err
		}
	}

	fragments, err := s.retriever.Retrieve(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve: %v", ErrUpstream, err)
	}

	sources := make([]string, 0, len(fragments))
	for _, f := range fragments {
		sources = append(sources, f.ID)
	}

	return &dialogueState{
		userTurn: userTurn,
		messages: buildMessages(history, fragments, content),
		sources:  sources,
	}, nil
}

// GetAnswer runs one blocking dialogue step: append the user turn, retrieve
// knowledge, invoke the model, persist the assistant turn. On model failure
// no assistant turn is appended and the session is left awaiting a reply.
func (s *ChatService) GetAnswer(ctx context.Context, sessionID, userID, content string) (*AnswerResult, error) {
	if _, err := s.authorize(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	release := s.locks.acquire(sessionID)
	defer release()

	state, err := s.prepareDialogue(ctx, sessionID, content)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	answer, err := s.model.Chat(genCtx, state.messages)
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", ErrUpstream, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: model returned empty answer", ErrUpstream)
	}

	assistantTurn, err := s.appendTurnLocked(ctx, sessionID, models.RoleAssistant, answer, state.sources)
	if err != nil {
		return nil, err
	}

	return &AnswerResult{
		UserTurn:      state.userTurn,
		AssistantTurn: assistantTurn,
		Answer:        answer,
		Sources:       state.sources,
	}, nil
}
