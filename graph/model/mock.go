package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnscripted is returned by ScriptedChat for a prompt it has no reply for.
var ErrUnscripted = errors.New("model: no scripted reply")

// ScriptedChat is a ChatModel for tests that answers routing prompts from a
// script instead of calling a provider.
//
// A call whose last user message has an entry in Answers gets that text back,
// with Usage attached. Any other call takes the next entry of Replies, the
// last one repeating, and fails with ErrUnscripted when Replies is empty. Err,
// when set, fails every call.
//
// Example:
//
//	chat := &model.ScriptedChat{Answers: map[string]string{
//	    "tell me something funny": "joke",
//	    "teach me something":      "fact",
//	}}
//	router := model.NewRouter(chat, prompt, []string{"joke", "fact"})
type ScriptedChat struct {
	Answers map[string]string
	Replies []ChatOut
	Usage   Usage
	Err     error

	mu            sync.Mutex
	conversations [][]Message
	next          int
}

// Chat implements the ChatModel interface. Calls on a done context fail with
// ctx.Err() and are not recorded.
func (s *ScriptedChat) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = append(s.conversations, slices.Clone(messages))
	if s.Err != nil {
		return ChatOut{}, s.Err
	}

	prompt := lastUserPrompt(messages)
	if answer, ok := s.Answers[prompt]; ok {
		return ChatOut{Text: answer, Usage: s.Usage}, nil
	}
	if len(s.Replies) == 0 {
		return ChatOut{}, fmt.Errorf("%w: %q", ErrUnscripted, prompt)
	}
	out := s.Replies[min(s.next, len(s.Replies)-1)]
	if s.next < len(s.Replies) {
		s.next++
	}
	return out, nil
}

// Prompts returns the last user message of every recorded call, in order.
func (s *ScriptedChat) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompts := make([]string, 0, len(s.conversations))
	for _, msgs := range s.conversations {
		prompts = append(prompts, lastUserPrompt(msgs))
	}
	return prompts
}

// Conversation returns the messages sent with the i-th call.
func (s *ScriptedChat) Conversation(i int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.conversations) {
		return nil
	}
	return slices.Clone(s.conversations[i])
}

// Reset forgets recorded calls and restarts Replies.
func (s *ScriptedChat) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = nil
	s.next = 0
}

func lastUserPrompt(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
