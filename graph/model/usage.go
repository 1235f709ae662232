package model

import (
	"maps"
	"sync"
	"time"
)

// Pricing is the USD cost of a model per million tokens.
type Pricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// Cost returns the USD cost of u under p.
func (p Pricing) Cost(u Usage) float64 {
	return float64(u.InputTokens)/1_000_000*p.InputPer1M +
		float64(u.OutputTokens)/1_000_000*p.OutputPer1M
}

// defaultPricing lists published list prices. Models missing from the table
// are tracked with zero cost.
var defaultPricing = map[string]Pricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":              {InputPer1M: 0.50, OutputPer1M: 1.50},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-5-haiku-20241022":  {InputPer1M: 0.80, OutputPer1M: 4.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
	"gemini-2.5-flash":           {InputPer1M: 0.30, OutputPer1M: 2.50},
}

// Call is one recorded chat call.
type Call struct {
	Model   string
	NodeID  string
	Usage   Usage
	CostUSD float64
	At      time.Time
}

// UsageTracker aggregates token usage and estimated cost of chat calls.
// It is safe for concurrent use, so one tracker may be shared by several
// runs of the same compiled graph.
//
// Example:
//
//	tracker := model.NewUsageTracker()
//	router := model.NewRouter(m, prompt, candidates, model.WithUsage(tracker, "classify"))
//	...
//	fmt.Printf("spent $%.4f\n", tracker.TotalCost())
type UsageTracker struct {
	mu      sync.RWMutex
	pricing map[string]Pricing
	calls   []Call
	byModel map[string]Usage
	cost    float64
	now     func() time.Time
}

// NewUsageTracker creates a tracker using the built-in pricing table.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		pricing: maps.Clone(defaultPricing),
		byModel: make(map[string]Usage),
		now:     time.Now,
	}
}

// SetPricing overrides or adds the price of a model.
func (t *UsageTracker) SetPricing(model string, p Pricing) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pricing[model] = p
}

// Record adds a call and returns its estimated cost.
func (t *UsageTracker) Record(model, nodeID string, u Usage) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	cost := t.pricing[model].Cost(u)
	t.calls = append(t.calls, Call{Model: model, NodeID: nodeID, Usage: u, CostUSD: cost, At: t.now()})
	agg := t.byModel[model]
	agg.InputTokens += u.InputTokens
	agg.OutputTokens += u.OutputTokens
	t.byModel[model] = agg
	t.cost += cost
	return cost
}

// TotalCost returns the estimated USD cost of all recorded calls.
func (t *UsageTracker) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cost
}

// Tokens returns the total input and output tokens recorded.
func (t *UsageTracker) Tokens() Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total Usage
	for _, u := range t.byModel {
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
	}
	return total
}

// ByModel returns the tokens recorded per model.
func (t *UsageTracker) ByModel() map[string]Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.byModel)
}

// Calls returns a copy of the call history in recording order.
func (t *UsageTracker) Calls() []Call {
	t.mu.RLock()
	defer t.mu.RUnlock()

	calls := make([]Call, len(t.calls))
	copy(calls, t.calls)
	return calls
}
