// Package google adapts Google's Gemini API to model.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/stategraph/graph/model"
)

// DefaultModel is used when NewChatModel is given an empty model name.
const DefaultModel = "gemini-2.5-flash"

// generateFunc sends the last message of a conversation after the given
// history.
type generateFunc func(ctx context.Context, system string, history []*genai.Content, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// ChatModel implements model.ChatModel for Gemini.
//
// System messages become the model's system instruction; earlier turns are
// sent as chat history. Call Close when done.
//
// Example:
//
//	m, err := google.NewChatModel(ctx, os.Getenv("GOOGLE_API_KEY"), "")
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
type ChatModel struct {
	client    *genai.Client
	modelName string
	generate  generateFunc
}

// NewChatModel creates a ChatModel and its underlying client.
func NewChatModel(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*ChatModel, error) {
	if apiKey == "" {
		return nil, errors.New("google: API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}
	m := &ChatModel{client: client, modelName: modelName}
	m.generate = m.send
	return m, nil
}

// Name returns the configured model name.
func (m *ChatModel) Name() string {
	return m.modelName
}

// Close releases the underlying client.
func (m *ChatModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	system, conversation := model.SplitSystem(messages)
	if len(conversation) == 0 {
		return model.ChatOut{}, errors.New("google: at least one user message is required")
	}

	history := make([]*genai.Content, 0, len(conversation)-1)
	for _, msg := range conversation[:len(conversation)-1] {
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	last := conversation[len(conversation)-1]

	resp, err := m.generate(ctx, system, history, genai.Text(last.Content))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: %w", err)
	}
	return convertResponse(resp, m.modelName)
}

func (m *ChatModel) send(ctx context.Context, system string, history []*genai.Content, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	gm := m.client.GenerativeModel(m.modelName)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	session := gm.StartChat()
	session.History = history
	return session.SendMessage(ctx, parts...)
}

func convertResponse(resp *genai.GenerateContentResponse, modelName string) (model.ChatOut, error) {
	out := model.ChatOut{Model: modelName}
	if resp == nil || len(resp.Candidates) == 0 {
		return out, errors.New("google: response has no candidates")
	}
	if resp.UsageMetadata != nil {
		out.Usage = model.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return out, nil
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	out.Text = text.String()
	return out, nil
}
