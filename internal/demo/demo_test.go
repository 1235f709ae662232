package demo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/tool"
)

func TestHello(t *testing.T) {
	g, err := Hello()
	if err != nil {
		t.Fatalf("Hello failed: %v", err)
	}

	tests := []struct {
		name      string
		overrides graph.Update
		wantSteps []string
	}{
		{"robot", graph.Update{"name": "Anchit", "isHuman": false}, []string{"sayHello", "robotNode", "sayBye"}},
		{"human", graph.Update{"isHuman": true}, []string{"sayHello", "humanNode", "sayBye"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nodes []string
			var final graph.State
			for step, err := range g.Stream(context.Background(), tt.overrides) {
				if err != nil {
					t.Fatalf("Stream failed: %v", err)
				}
				nodes = append(nodes, step.Node)
				final = step.State
			}
			if strings.Join(nodes, ",") != strings.Join(tt.wantSteps, ",") {
				t.Errorf("expected steps %v, got %v", tt.wantSteps, nodes)
			}
			if final.Value("name") != "Bill Nye" || final.Value("isHuman") != true {
				t.Errorf("unexpected final state: %v", final)
			}
		})
	}
}

func apiServer(t *testing.T, failures int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if int(hits.Add(1)) <= failures {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/joke":
			_, _ = io.WriteString(w, `{"joke":"A SQL query walks into a bar."}`)
		case "/fact":
			_, _ = io.WriteString(w, `{"id":"1","text":"Honey never spoils."}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestJokeOrFact(t *testing.T) {
	server, _ := apiServer(t, 0)
	buf := emit.NewBufferedEmitter()
	g, err := JokeOrFact(JokeOrFactConfig{
		JokeURL: server.URL + "/joke",
		FactURL: server.URL + "/fact",
	}, graph.WithEmitter(buf))
	if err != nil {
		t.Fatalf("JokeOrFact failed: %v", err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"i want a fact", "You requested a FACT: Honey never spoils."},
		{"i want a joke", "You requested a JOKE: A SQL query walks into a bar."},
		{"Tell me a JOKE", "You requested a JOKE: A SQL query walks into a bar."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Ask(context.Background(), g, tt.input)
			if err != nil {
				t.Fatalf("Ask failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if got := len(buf.Runs()); got != len(tests) {
		t.Errorf("expected %d recorded runs, got %d", len(tests), got)
	}
}

func TestJokeOrFact_DefaultInput(t *testing.T) {
	server, _ := apiServer(t, 0)
	g, err := JokeOrFact(JokeOrFactConfig{JokeURL: server.URL + "/joke", FactURL: server.URL + "/fact"})
	if err != nil {
		t.Fatalf("JokeOrFact failed: %v", err)
	}
	final, err := g.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if msg, _ := graph.Lookup[string](final, "responseMsg"); !strings.HasPrefix(msg, "You requested a JOKE") {
		t.Errorf("expected the default input to request a joke, got %q", msg)
	}
}

func TestJokeOrFact_RetriesTemporaryFailures(t *testing.T) {
	server, hits := apiServer(t, 2)
	g, err := JokeOrFact(JokeOrFactConfig{
		JokeURL: server.URL + "/joke",
		FactURL: server.URL + "/fact",
		Retry:   graph.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("JokeOrFact failed: %v", err)
	}

	got, err := Ask(context.Background(), g, "fact please")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if got != "You requested a FACT: Honey never spoils." {
		t.Errorf("unexpected response %q", got)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
}

func TestJokeOrFact_Failures(t *testing.T) {
	t.Run("status without retry", func(t *testing.T) {
		server, _ := apiServer(t, 1)
		g, err := JokeOrFact(JokeOrFactConfig{JokeURL: server.URL + "/joke", FactURL: server.URL + "/fact"})
		if err != nil {
			t.Fatalf("JokeOrFact failed: %v", err)
		}
		_, err = Ask(context.Background(), g, "joke")
		var statusErr *tool.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected 503 status error, got %v", err)
		}
		var nodeErr *graph.NodeError
		if !errors.As(err, &nodeErr) || nodeErr.NodeID != "jokeNode" {
			t.Errorf("expected failure attributed to jokeNode, got %v", err)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		mock := &tool.ScriptedTool{ByURL: map[string]map[string]interface{}{
			DefaultJokeURL: tool.JSONOutput(map[string]interface{}{"setup": "no punchline"}),
		}}
		g, err := JokeOrFact(JokeOrFactConfig{Tool: mock})
		if err != nil {
			t.Fatalf("JokeOrFact failed: %v", err)
		}
		if _, err := Ask(context.Background(), g, "joke"); err == nil || !strings.Contains(err.Error(), `"joke"`) {
			t.Errorf("expected missing field error, got %v", err)
		}
		if urls := mock.URLs(); len(urls) != 1 || urls[0] != DefaultJokeURL {
			t.Errorf("expected one call to the default joke URL, got %v", urls)
		}
	})
}

func TestJokeOrFact_ModelRouter(t *testing.T) {
	server, _ := apiServer(t, 0)
	chat := &model.ScriptedChat{Answers: map[string]string{"surprise me": "Fact"}}
	router := model.NewRouter(chat, func(s graph.State) (string, error) {
		input, _ := graph.Lookup[string](s, "userInput")
		return input, nil
	}, []string{"joke", "fact"})

	g, err := JokeOrFact(JokeOrFactConfig{
		JokeURL: server.URL + "/joke",
		FactURL: server.URL + "/fact",
		Router:  router,
	})
	if err != nil {
		t.Fatalf("JokeOrFact failed: %v", err)
	}
	got, err := Ask(context.Background(), g, "surprise me")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if !strings.HasPrefix(got, "You requested a FACT") {
		t.Errorf("expected the model's choice to be followed, got %q", got)
	}
}
