package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/stategraph/graph"
)

// PromptFunc renders the user prompt of a routing decision from state.
type PromptFunc func(state graph.State) (string, error)

// RouterOption configures a router built by NewRouter.
type RouterOption func(*llmRouter)

// WithSystemPrompt replaces the default instruction listing the choices.
func WithSystemPrompt(prompt string) RouterOption {
	return func(r *llmRouter) { r.system = prompt }
}

// WithUsage records the token usage of every decision in tracker under nodeID.
// modelName is used when the provider does not report the model.
func WithUsage(tracker *UsageTracker, nodeID, modelName string) RouterOption {
	return func(r *llmRouter) {
		r.tracker = tracker
		r.nodeID = nodeID
		r.modelName = modelName
	}
}

// WithDecisionChannel also writes the model's raw answer into the named
// state channel, merged before the route is followed.
func WithDecisionChannel(channel string) RouterOption {
	return func(r *llmRouter) { r.decision = channel }
}

type llmRouter struct {
	model     ChatModel
	prompt    PromptFunc
	choices   []string
	system    string
	tracker   *UsageTracker
	nodeID    string
	modelName string
	decision  string
}

// NewRouter returns a router that asks m to pick one of choices.
//
// choices are the values the router may return: node names for
// AddConditionalEdges, or path map labels for AddConditionalEdgesMap. The
// answer is matched case-insensitively, first exactly and then by the longest
// choice it mentions. An answer matching no choice is returned as is, which
// fails the run with graph.ErrInvalidRoute when candidates are declared.
//
// Example:
//
//	classify := model.NewRouter(m, func(s graph.State) (string, error) {
//	    input, _ := graph.Lookup[string](s, "userInput")
//	    return "Does the user want a joke or a fact? " + input, nil
//	}, []string{"joke", "fact"})
//	b.AddConditionalEdgesMap(graph.START, classify, map[string]string{"joke": "jokeNode", "fact": "factNode"})
func NewRouter(m ChatModel, prompt PromptFunc, choices []string, opts ...RouterOption) graph.RouterFunc {
	r := &llmRouter{
		model:   m,
		prompt:  prompt,
		choices: choices,
		system: fmt.Sprintf("Answer with exactly one of: %s. Do not add any other text.",
			strings.Join(choices, ", ")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r.route
}

func (r *llmRouter) route(ctx context.Context, state graph.State) (graph.Outcome, error) {
	user, err := r.prompt(state)
	if err != nil {
		return graph.Outcome{}, fmt.Errorf("render prompt: %w", err)
	}

	messages := []Message{{Role: RoleUser, Content: user}}
	if r.system != "" {
		messages = append([]Message{{Role: RoleSystem, Content: r.system}}, messages...)
	}
	out, err := r.model.Chat(ctx, messages)
	if err != nil {
		return graph.Outcome{}, fmt.Errorf("chat: %w", err)
	}

	if r.tracker != nil {
		name := out.Model
		if name == "" {
			name = r.modelName
		}
		r.tracker.Record(name, r.nodeID, out.Usage)
	}

	target := MatchChoice(out.Text, r.choices)
	if r.decision != "" {
		return graph.GotoWith(graph.Update{r.decision: out.Text}, target), nil
	}
	return graph.Goto(target), nil
}

// MatchChoice maps a free-form model answer onto one of choices. It returns
// the trimmed answer when no choice matches.
func MatchChoice(answer string, choices []string) string {
	trimmed := strings.Trim(strings.TrimSpace(answer), ".!\"'`*")
	for _, c := range choices {
		if strings.EqualFold(trimmed, c) {
			return c
		}
	}

	lower := strings.ToLower(trimmed)
	best := ""
	for _, c := range choices {
		if len(c) > len(best) && strings.Contains(lower, strings.ToLower(c)) {
			best = c
		}
	}
	if best != "" {
		return best
	}
	return trimmed
}
