package graph

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrNodeTimeout is wrapped by the error of a node that exceeded the limit set
// with Timeout.
var ErrNodeTimeout = errors.New("node timeout")

// RetryPolicy defines automatic retry configuration for transient node
// failures.
//
// Delays use exponential backoff with jitter:
// min(BaseDelay * 2^attempt, MaxDelay) + jitter(0, BaseDelay).
type RetryPolicy struct {
	// MaxAttempts is the maximum number of executions, including the first.
	// Must be >= 1. A value of 1 means no retries.
	MaxAttempts int

	// BaseDelay is the base delay for exponential backoff between retries.
	BaseDelay time.Duration

	// MaxDelay caps the exponential component. Zero means no cap.
	MaxDelay time.Duration

	// Retryable reports whether an error is worth retrying, e.g. HTTP 429 or
	// 503 responses. If nil, no error is retried.
	Retryable func(error) bool
}

// Validate checks the policy constraints.
func (rp RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be >= 1, got %d", rp.MaxAttempts)
	}
	if rp.BaseDelay < 0 || rp.MaxDelay < 0 {
		return errors.New("retry policy: delays cannot be negative")
	}
	if rp.MaxDelay > 0 && rp.BaseDelay > rp.MaxDelay {
		return fmt.Errorf("retry policy: max delay %v is below base delay %v", rp.MaxDelay, rp.BaseDelay)
	}
	return nil
}

func (rp RetryPolicy) backoff(attempt int) time.Duration {
	if rp.BaseDelay <= 0 {
		return 0
	}
	delay := rp.BaseDelay << attempt
	if delay <= 0 || (rp.MaxDelay > 0 && delay > rp.MaxDelay) {
		delay = rp.MaxDelay
	}
	return delay + time.Duration(rand.Int64N(int64(rp.BaseDelay))) // #nosec G404 -- jitter for retry timing
}

// Retry wraps node so failures accepted by policy.Retryable are retried.
//
// The engine still sees a single node execution: one node_start/node_end
// pair and one step. The last error is returned once attempts run out. Waiting
// between attempts stops early with ctx.Err() when ctx is done.
//
// An invalid policy is reported by Builder.AddNode as ErrInvalidNode.
//
// Example:
//
//	b.AddNode("jokeNode", graph.Retry(fetchJoke, graph.RetryPolicy{
//	    MaxAttempts: 3,
//	    BaseDelay:   200 * time.Millisecond,
//	    Retryable:   tool.IsTemporary,
//	}))
func Retry(node Node, policy RetryPolicy) Node {
	return &retryNode{node: node, policy: policy}
}

type retryNode struct {
	node   Node
	policy RetryPolicy
}

func (r *retryNode) Validate() error {
	if r.node == nil {
		return errors.New("retry: wrapped node cannot be nil")
	}
	return r.policy.Validate()
}

func (r *retryNode) Run(ctx context.Context, state State) (Update, error) {
	var lastErr error
	for attempt := range r.policy.MaxAttempts {
		if attempt > 0 {
			timer := time.NewTimer(r.policy.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		update, err := r.node.Run(ctx, state)
		if err == nil {
			return update, nil
		}
		lastErr = err
		if r.policy.Retryable == nil || !r.policy.Retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// Timeout wraps node so each execution runs under a context with deadline d.
// A node that outlives d fails with an error wrapping both ErrNodeTimeout and
// context.DeadlineExceeded. A non-positive d returns node unchanged.
//
// The node must honor ctx for the limit to take effect: Timeout never
// abandons a running node.
func Timeout(node Node, d time.Duration) Node {
	if d <= 0 {
		return node
	}
	return &timeoutNode{node: node, limit: d}
}

type timeoutNode struct {
	node  Node
	limit time.Duration
}

func (t *timeoutNode) Validate() error {
	if t.node == nil {
		return errors.New("timeout: wrapped node cannot be nil")
	}
	return nil
}

func (t *timeoutNode) Run(ctx context.Context, state State) (Update, error) {
	tctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	update, err := t.node.Run(tctx, state)
	if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w after %v: %w", ErrNodeTimeout, t.limit, context.DeadlineExceeded)
	}
	return update, err
}
