// Package tool provides side-effecting operations that graph nodes call, such
// as HTTP requests to external APIs.
package tool

import "context"

// Tool is an executable operation with structured input and output.
//
// Implementations should:
//   - Validate input parameters
//   - Respect context cancellation and timeouts
//   - Return structured output as map[string]interface{}
//
// Example implementation:
//
//	type WeatherTool struct{}
//
//	func (w *WeatherTool) Name() string { return "get_weather" }
//
//	func (w *WeatherTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
//	    location, ok := input["location"].(string)
//	    if !ok {
//	        return nil, errors.New("location parameter required")
//	    }
//	    return map[string]interface{}{"location": location, "temperature": 72.5}, nil
//	}
type Tool interface {
	// Name returns the unique identifier for this tool, lowercase with
	// underscores (e.g. "http_request").
	Name() string

	// Call executes the tool. input may be nil for parameterless tools.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
