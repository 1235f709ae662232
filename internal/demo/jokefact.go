package demo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/tool"
)

// Public APIs used by the joke-or-fact graph.
const (
	DefaultJokeURL = "https://geek-jokes.sameerkumar.website/api?format=json"
	DefaultFactURL = "https://uselessfacts.jsph.pl/api/v2/facts/random"
)

// JokeOrFactConfig configures the joke-or-fact graph. Zero values select the
// public APIs, the keyword router, and no retries.
type JokeOrFactConfig struct {
	JokeURL string
	FactURL string

	// Tool performs the HTTP requests. Defaults to tool.NewHTTPTool().
	Tool tool.Tool

	// Router chooses "joke" or "fact" at entry. Defaults to KeywordRouter.
	Router graph.Router

	// Retry is applied to both fetch nodes when MaxAttempts is set. A nil
	// Retryable defaults to tool.IsTemporary.
	Retry graph.RetryPolicy

	// Timeout bounds each fetch attempt.
	Timeout time.Duration
}

// KeywordRouter routes to "joke" when userInput mentions a joke, else to
// "fact".
func KeywordRouter() graph.RouterFunc {
	return graph.Branch(func(s graph.State) string {
		input, _ := graph.Lookup[string](s, "userInput")
		if strings.Contains(strings.ToLower(input), "joke") {
			return "joke"
		}
		return "fact"
	})
}

// JokeOrFactSchema declares userInput, defaulting to "joke", and responseMsg.
func JokeOrFactSchema() *graph.Schema {
	return graph.MustSchema(
		graph.LastValue[string]("userInput").WithDefault(func() any { return "joke" }),
		graph.LastValue[string]("responseMsg"),
	)
}

// JokeOrFact compiles a graph that routes directly from START to jokeNode or
// factNode, each of which fetches text from a public API into responseMsg.
func JokeOrFact(cfg JokeOrFactConfig, opts ...graph.Option) (*graph.CompiledGraph, error) {
	if cfg.JokeURL == "" {
		cfg.JokeURL = DefaultJokeURL
	}
	if cfg.FactURL == "" {
		cfg.FactURL = DefaultFactURL
	}
	if cfg.Tool == nil {
		cfg.Tool = tool.NewHTTPTool()
	}
	if cfg.Router == nil {
		cfg.Router = KeywordRouter()
	}

	return graph.NewBuilder(JokeOrFactSchema()).
		AddNode("jokeNode", cfg.fetch(cfg.JokeURL, "joke", "You requested a JOKE: ")).
		AddNode("factNode", cfg.fetch(cfg.FactURL, "text", "You requested a FACT: ")).
		AddConditionalEdgesMap(graph.START, cfg.Router, map[string]string{
			"joke": "jokeNode",
			"fact": "factNode",
		}).
		SetFinishPoint("jokeNode").
		SetFinishPoint("factNode").
		Compile(opts...)
}

// fetch builds a node that GETs url and writes prefix plus the named JSON
// field to responseMsg.
func (cfg JokeOrFactConfig) fetch(url, field, prefix string) graph.Node {
	node := tool.Node(cfg.Tool, tool.Static(map[string]interface{}{"url": url}),
		func(out map[string]interface{}) (graph.Update, error) {
			v, ok := tool.JSONField(out, field)
			if !ok {
				return nil, fmt.Errorf("response has no %q field", field)
			}
			text, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("field %q has type %T, want string", field, v)
			}
			return graph.Update{"responseMsg": prefix + text}, nil
		})

	node = graph.Timeout(node, cfg.Timeout)
	if cfg.Retry.MaxAttempts > 0 {
		policy := cfg.Retry
		if policy.Retryable == nil {
			policy.Retryable = tool.IsTemporary
		}
		node = graph.Retry(node, policy)
	}
	return node
}

// Ask runs g with the given user input and returns the response message.
func Ask(ctx context.Context, g *graph.CompiledGraph, input string) (string, error) {
	final, err := g.Invoke(ctx, graph.Update{"userInput": input})
	if err != nil {
		return "", err
	}
	msg, _ := graph.Lookup[string](final, "responseMsg")
	return msg, nil
}
