package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// EventType discriminates streamed dialogue events.
type EventType string

const (
	// EventUserTurn carries the persisted user turn, emitted once before
	// any deltas.
	EventUserTurn EventType = "user_turn"
	// EventAssistantDelta carries one increment of the assistant's answer.
	EventAssistantDelta EventType = "assistant_delta"
	// EventAssistantTurn carries the persisted assistant turn, emitted once
	// after the final delta.
	EventAssistantTurn EventType = "assistant_turn"
)

// Event is one element of a dialogue stream.
type Event struct {
	Type  EventType    `json:"type"`
	Turn  *models.Turn `json:"turn,omitempty"`
	Delta string       `json:"delta,omitempty"`
}

// StreamAnswer runs one dialogue step with incremental delivery. The event
// channel yields a user_turn event, then assistant_delta events, then one
// assistant_turn event with the persisted turn; both channels close at end
// of stream and the error channel holds at most one error.
//
// Deltas are buffered and the assistant turn is persisted only after the
// final delta, so a cancelled stream leaves no partial assistant turn. The
// already-persisted user turn stands; a retry with the same content resumes
// it.
func (s *ChatService) StreamAnswer(ctx context.Context, sessionID, userID, content string) (<-chan Event, <-chan error) {
	events := make(chan Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		if _, err := s.authorize(ctx, sessionID, userID); err != nil {
			errs <- err
			return
		}

		release := s.locks.acquire(sessionID)
		defer release()

		state, err := s.prepareDialogue(ctx, sessionID, content)
		if err != nil {
			errs <- err
			return
		}

		select {
		case events <- Event{Type: EventUserTurn, Turn: state.userTurn}:
		case <-ctx.Done():
			errs <- ctx.Err()
			return
		}

		genCtx, cancel := context.WithTimeout(ctx, s.streamTimeout)
		defer cancel()

		deltas, streamErrs := s.model.ChatStream(genCtx, state.messages)

		var answer strings.Builder
		for delta := range deltas {
			answer.WriteString(delta)
			select {
			case events <- Event{Type: EventAssistantDelta, Delta: delta}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}

		if err := <-streamErrs; err != nil {
			errs <- fmt.Errorf("%w: generate: %v", ErrUpstream, err)
			return
		}

		text := strings.TrimSpace(answer.String())
		if text == "" {
			errs <- fmt.Errorf("%w: model returned empty answer", ErrUpstream)
			return
		}

		turn, err := s.appendTurnLocked(ctx, sessionID, models.RoleAssistant, text, state.sources)
		if err != nil {
			errs <- err
			return
		}

		select {
		case events <- Event{Type: EventAssistantTurn, Turn: turn}:
		case <-ctx.Done():
			errs <- ctx.Err()
		}
	}()

	return events, errs
}
