// Package model connects graph routers to LLM chat providers.
package model

import "context"

// ChatModel defines the interface for LLM chat providers.
//
// Implementations convert the provider-neutral Message list into the
// provider's request format, report token usage in ChatOut, and respect
// context cancellation. Retries are left to the caller (see graph.Retry).
//
// Example:
//
//	m := openai.NewChatModel(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "Reply with joke or fact: i want a joke"},
//	})
type ChatModel interface {
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role identifies the message sender. Use the Role* constants.
	Role string

	// Content contains the message text.
	Content string
}

// Standard role constants for LLM conversations.
const (
	// RoleSystem sets context or instructions; providers that take a
	// separate system prompt receive these concatenated.
	RoleSystem = "system"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOut represents the output from an LLM chat completion.
type ChatOut struct {
	// Text contains the generated response.
	Text string

	// Model is the model that produced the response, as reported by the
	// provider when available.
	Model string

	// Usage holds the tokens consumed by the call.
	Usage Usage
}

// Usage counts the tokens of a single chat call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// SplitSystem separates system messages from the conversation. Multiple
// system messages are joined with a blank line.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	conversation := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != RoleSystem {
			conversation = append(conversation, msg)
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += msg.Content
	}
	return system, conversation
}
