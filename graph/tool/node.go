package tool

import (
	"context"
	"fmt"

	"github.com/dshills/stategraph/graph"
)

// InputFunc builds the input of a tool call from the current state.
type InputFunc func(state graph.State) (map[string]interface{}, error)

// OutputFunc converts a tool result into a state update.
type OutputFunc func(output map[string]interface{}) (graph.Update, error)

// Static returns an InputFunc that always yields input.
func Static(input map[string]interface{}) InputFunc {
	return func(graph.State) (map[string]interface{}, error) {
		return input, nil
	}
}

// Node adapts a Tool into a graph node: it builds the input from state, calls
// the tool, and converts its output into an update. A nil in calls the tool
// with no input; a nil out discards the output.
//
// Example:
//
//	jokeNode := tool.Node(tool.NewHTTPTool(), tool.Static(map[string]interface{}{"url": jokeURL}),
//	    func(out map[string]interface{}) (graph.Update, error) {
//	        joke, _ := tool.JSONField(out, "joke")
//	        return graph.Update{"responseMsg": fmt.Sprint("You requested a JOKE: ", joke)}, nil
//	    })
func Node(t Tool, in InputFunc, out OutputFunc) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, state graph.State) (graph.Update, error) {
		var input map[string]interface{}
		if in != nil {
			var err error
			if input, err = in(state); err != nil {
				return nil, fmt.Errorf("%s: build input: %w", t.Name(), err)
			}
		}
		output, err := t.Call(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
		if out == nil {
			return nil, nil
		}
		update, err := out(output)
		if err != nil {
			return nil, fmt.Errorf("%s: convert output: %w", t.Name(), err)
		}
		return update, nil
	})
}
