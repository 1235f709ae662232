package tool

import (
	"context"
	"maps"
	"sync"
)

// ScriptedTool is a Tool for tests that stands in for HTTPTool.
//
// A call whose "url" input has an entry in ByURL gets that output. Any other
// call takes the next entry of Outputs, the last one repeating, or an empty
// output when Outputs is empty. Err, when set, fails every call.
//
// Example:
//
//	api := &tool.ScriptedTool{ByURL: map[string]map[string]interface{}{
//	    "https://example.com/joke": tool.JSONOutput(map[string]interface{}{"joke": "..."}),
//	}}
type ScriptedTool struct {
	// ToolName is returned by Name. Defaults to "http_request".
	ToolName string

	ByURL   map[string]map[string]interface{}
	Outputs []map[string]interface{}
	Err     error

	mu     sync.Mutex
	inputs []map[string]interface{}
	next   int
}

// JSONOutput builds a successful HTTPTool output carrying a decoded JSON body.
func JSONOutput(body map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status_code": 200,
		"headers":     map[string]interface{}{"Content-Type": "application/json"},
		"json":        body,
	}
}

// Name implements the Tool interface.
func (s *ScriptedTool) Name() string {
	if s.ToolName == "" {
		return "http_request"
	}
	return s.ToolName
}

// Call implements the Tool interface. Calls on a done context fail with
// ctx.Err() and are not recorded.
func (s *ScriptedTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inputs = append(s.inputs, maps.Clone(input))
	if s.Err != nil {
		return nil, s.Err
	}
	if url, ok := input["url"].(string); ok {
		if out, ok := s.ByURL[url]; ok {
			return out, nil
		}
	}
	if len(s.Outputs) == 0 {
		return map[string]interface{}{}, nil
	}
	out := s.Outputs[min(s.next, len(s.Outputs)-1)]
	if s.next < len(s.Outputs) {
		s.next++
	}
	return out, nil
}

// Inputs returns a copy of the input of every recorded call, in order.
func (s *ScriptedTool) Inputs() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	inputs := make([]map[string]interface{}, len(s.inputs))
	for i, in := range s.inputs {
		inputs[i] = maps.Clone(in)
	}
	return inputs
}

// URLs returns the "url" input of every recorded call, in order.
func (s *ScriptedTool) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(s.inputs))
	for _, in := range s.inputs {
		url, _ := in["url"].(string)
		urls = append(urls, url)
	}
	return urls
}

// Reset forgets recorded calls and restarts Outputs.
func (s *ScriptedTool) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inputs = nil
	s.next = 0
}
