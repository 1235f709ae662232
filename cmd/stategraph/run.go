package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/model/anthropic"
	"github.com/dshills/stategraph/graph/model/google"
	"github.com/dshills/stategraph/graph/model/openai"
	"github.com/dshills/stategraph/internal/demo"
)

func newRunCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a bundled example graph",
	}
	cmd.AddCommand(newRunHelloCmd(global), newRunJokeOrFactCmd(global))
	return cmd
}

func newRunHelloCmd(global *globalOptions) *cobra.Command {
	var (
		name  string
		human bool
	)
	cmd := &cobra.Command{
		Use:   "hello",
		Short: "Greet a human or a robot",
		Long: `Runs the hello graph declared by the embedded manifest and prints the
final state as JSON. Without --name the channel default is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, cleanup, err := global.graphOptions(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			g, err := demo.Hello(opts...)
			if err != nil {
				return err
			}
			overrides := graph.Update{"isHuman": human}
			if cmd.Flags().Changed("name") {
				overrides["name"] = name
			}
			return runAndPrint(cmd, g, overrides)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "initial name")
	cmd.Flags().BoolVar(&human, "human", false, "route through humanNode")
	return cmd
}

type jokeOrFactFlags struct {
	jokeURL string
	factURL string
	retries int
	timeout time.Duration
	router  string
	model   string
}

func newRunJokeOrFactCmd(global *globalOptions) *cobra.Command {
	f := &jokeOrFactFlags{}
	cmd := &cobra.Command{
		Use:   "joke-or-fact [INPUT]",
		Short: "Fetch a joke or a fact depending on the input",
		Long: `Routes the input to a joke or a fact API and prints the response.

The route is chosen by keyword unless --router names an LLM provider:
  anthropic  uses ANTHROPIC_API_KEY
  openai     uses OPENAI_API_KEY
  google     uses GOOGLE_API_KEY

Examples:
  stategraph run joke-or-fact "i want a fact"
  stategraph run joke-or-fact "surprise me" --router openai --model gpt-4o-mini`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cleanup, err := global.graphOptions(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			cfg := demo.JokeOrFactConfig{
				JokeURL: f.jokeURL,
				FactURL: f.factURL,
				Timeout: f.timeout,
			}
			if f.retries > 0 {
				cfg.Retry = graph.RetryPolicy{
					MaxAttempts: f.retries + 1,
					BaseDelay:   250 * time.Millisecond,
					MaxDelay:    2 * time.Second,
				}
			}

			var tracker *model.UsageTracker
			if f.router != "keyword" {
				chat, closeModel, err := chatModel(cmd.Context(), f.router, f.model)
				if err != nil {
					return err
				}
				defer closeModel()
				tracker = model.NewUsageTracker()
				cfg.Router = model.NewRouter(chat, func(s graph.State) (string, error) {
					input, _ := graph.Lookup[string](s, "userInput")
					return "Does this request ask for a joke or a fact? " + input, nil
				}, []string{"joke", "fact"}, model.WithUsage(tracker, graph.START, f.model))
			}

			g, err := demo.JokeOrFact(cfg, opts...)
			if err != nil {
				return err
			}
			overrides := graph.Update{}
			if len(args) == 1 {
				overrides["userInput"] = args[0]
			}
			if err := runAndPrint(cmd, g, overrides); err != nil {
				return err
			}
			if tracker != nil {
				tokens := tracker.Tokens()
				fmt.Fprintf(cmd.ErrOrStderr(), "routing used %d input and %d output tokens (~$%.6f)\n",
					tokens.InputTokens, tokens.OutputTokens, tracker.TotalCost())
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.jokeURL, "joke-url", demo.DefaultJokeURL, "joke API endpoint")
	flags.StringVar(&f.factURL, "fact-url", demo.DefaultFactURL, "fact API endpoint")
	flags.IntVar(&f.retries, "retries", 2, "retries of temporary API failures")
	flags.DurationVar(&f.timeout, "timeout", 10*time.Second, "per-request timeout")
	flags.StringVar(&f.router, "router", "keyword", "router: keyword, anthropic, openai, or google")
	flags.StringVar(&f.model, "model", "", "provider model name (provider default when empty)")
	return cmd
}

// chatModel creates the provider selected by --router.
func chatModel(ctx context.Context, provider, name string) (model.ChatModel, func(), error) {
	key := func(env string) (string, error) {
		v := os.Getenv(env)
		if v == "" {
			return "", fmt.Errorf("--router %s requires %s", provider, env)
		}
		return v, nil
	}
	switch strings.ToLower(provider) {
	case "anthropic":
		k, err := key("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, nil, err
		}
		return anthropic.NewChatModel(k, name), func() {}, nil
	case "openai":
		k, err := key("OPENAI_API_KEY")
		if err != nil {
			return nil, nil, err
		}
		return openai.NewChatModel(k, name), func() {}, nil
	case "google":
		k, err := key("GOOGLE_API_KEY")
		if err != nil {
			return nil, nil, err
		}
		m, err := google.NewChatModel(ctx, k, name)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown --router %q", provider)
}

// runAndPrint runs g under a fresh run ID and prints the final state.
func runAndPrint(cmd *cobra.Command, g *graph.CompiledGraph, overrides graph.Update) error {
	runID := uuid.NewString()
	final, err := g.Run(cmd.Context(), runID, overrides)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
	fmt.Fprintf(cmd.ErrOrStderr(), "run %s finished\n", runID)
	return nil
}
