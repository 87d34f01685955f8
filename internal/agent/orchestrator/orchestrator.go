// Package orchestrator runs the bounded model/tool loop behind the chat
// endpoint.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/taskchat/taskchat/internal/agent/ai"
	"github.com/taskchat/taskchat/internal/agent/tools"
	"github.com/taskchat/taskchat/internal/logging"
	"github.com/taskchat/taskchat/internal/metrics"
)

// SystemPrompt defines the assistant's behavior and the intent mapping
// for the five task tools. Loaded once; shared read-only across requests.
const SystemPrompt = `You are a helpful todo assistant. You help users manage their tasks through natural language.

Available operations:
- Add task: Create a new task with title and optional description
- List tasks: View all tasks, or filter by pending/completed status
- Complete task: Mark a task as completed
- Delete task: Remove a task permanently
- Update task: Modify task title and/or description

Map user intent to tools by trigger words:
- "add", "create", "remember" -> add_task
- "show", "list", "see" -> list_tasks
- "done", "complete", "finished" -> complete_task
- "delete", "remove", "cancel" -> delete_task
- "change", "update", "rename" -> update_task

Always confirm actions and provide clear, friendly feedback. When users request operations:
1. Extract the necessary information from their request
2. Call the appropriate tool with the correct parameters
3. Confirm the result in a natural, conversational way

If a request is ambiguous or missing required information, ask clarifying questions before taking action.`

// FallbackMessage is returned when the iteration bound is reached without
// a final text answer.
const FallbackMessage = "I wasn't able to finish that request. Could you simplify it or break it into smaller steps?"

const (
	// DefaultMaxIterations bounds model/tool round trips per turn.
	DefaultMaxIterations = 5

	// DefaultMaxRetries bounds retries of one model call.
	DefaultMaxRetries = 2

	retryBaseDelay = 500 * time.Millisecond
	retryCapDelay  = 5 * time.Second
)

// ToolCallSummary is the per-call report included in the chat envelope.
// Name and status only, never arguments.
type ToolCallSummary struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Result is the outcome of one orchestrator run.
type Result struct {
	Response  string
	ToolCalls []ToolCallSummary

	// Fallback is true when the iteration bound was reached.
	Fallback bool
}

// Orchestrator drives the model through tool calls until it produces a
// final text answer or the iteration bound is hit.
type Orchestrator struct {
	provider      ai.Provider
	registry      *tools.Registry
	maxIterations int
	maxRetries    int
}

// New creates an orchestrator. Non-positive bounds fall back to defaults.
func New(provider ai.Provider, registry *tools.Registry, maxIterations, maxRetries int) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Orchestrator{
		provider:      provider,
		registry:      registry,
		maxIterations: maxIterations,
		maxRetries:    maxRetries,
	}
}

// Run executes the loop for one chat turn. history must already end with
// the new user message. Every tool call executes with userID regardless
// of what the model put in the arguments.
func (o *Orchestrator) Run(ctx context.Context, userID string, history []ai.Message) (*Result, error) {
	transcript := append([]ai.Message(nil), history...)
	toolDefs := o.registry.List()

	var summaries []ToolCallSummary

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		completion, err := o.complete(ctx, &ai.ChatRequest{
			System:   SystemPrompt,
			Messages: transcript,
			Tools:    toolDefs,
		})
		if err != nil {
			return nil, err
		}

		if len(completion.ToolCalls) == 0 {
			return &Result{
				Response:  completion.Text,
				ToolCalls: summaries,
			}, nil
		}

		calls, err := stampIdentity(completion.ToolCalls, userID)
		if err != nil {
			return nil, err
		}

		transcript = append(transcript, ai.Message{
			Role:      "assistant",
			Content:   completion.Text,
			ToolCalls: calls,
		})

		results, batch := o.executeAll(ctx, calls)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summaries = append(summaries, batch...)

		transcript = append(transcript, ai.Message{
			Role:        "tool",
			ToolResults: results,
		})
	}

	// No further calls happen past the bound, but the ones that already
	// ran mutated state and are reported.
	logging.Warnf("[Orchestrator] iteration bound reached for user %s", userID)
	return &Result{
		Response:  FallbackMessage,
		ToolCalls: summaries,
		Fallback:  true,
	}, nil
}

// complete calls the provider with capped exponential backoff on
// transient failures. Exhausted retries surface as ErrModelUnavailable.
func (o *Orchestrator) complete(ctx context.Context, req *ai.ChatRequest) (*ai.Completion, error) {
	backoff := retry.WithCappedDuration(retryCapDelay,
		retry.WithMaxRetries(uint64(o.maxRetries), retry.NewExponential(retryBaseDelay)))

	var completion *ai.Completion
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := o.provider.Complete(ctx, req)
		if err != nil {
			metrics.ModelCalls.WithLabelValues(o.provider.ID(), "error").Inc()
			if ai.IsRetryable(err) {
				logging.Warnf("[Orchestrator] retryable model error: %v", err)
				return retry.RetryableError(err)
			}
			return err
		}
		metrics.ModelCalls.WithLabelValues(o.provider.ID(), "success").Inc()
		completion = c
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Errorf("[Orchestrator] model call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ai.ErrModelUnavailable, err)
	}
	return completion, nil
}

// stampIdentity overwrites the user_id argument of every tool call with
// the authenticated caller's identity. The model's own value, present or
// forged, never reaches a tool.
func stampIdentity(calls []ai.ToolCall, userID string) ([]ai.ToolCall, error) {
	stamped := make([]ai.ToolCall, len(calls))
	for i, call := range calls {
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		input := call.Input
		if len(input) == 0 {
			input = []byte(`{}`)
		}
		out, err := sjson.SetBytes(input, "user_id", userID)
		if err != nil {
			return nil, fmt.Errorf("stamp user_id on %s: %w", call.Name, err)
		}
		call.Input = out
		stamped[i] = call
	}
	return stamped, nil
}

// executeAll runs one iteration's tool calls concurrently. All calls
// complete before returning; results and summaries keep request order so
// the transcript replayed to the model is deterministic.
func (o *Orchestrator) executeAll(ctx context.Context, calls []ai.ToolCall) ([]ai.ToolResult, []ToolCallSummary) {
	results := make([]ai.ToolResult, len(calls))
	summaries := make([]ToolCallSummary, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			res := o.registry.Execute(gctx, &call)
			status := "success"
			if res.IsError {
				status = "error"
			}
			metrics.ToolExecutions.WithLabelValues(call.Name, status).Inc()
			results[i] = ai.ToolResult{
				ToolCallID: call.ID,
				Content:    res.Content,
				IsError:    res.IsError,
			}
			summaries[i] = ToolCallSummary{Name: call.Name, Status: status}
			return nil
		})
	}
	// Tool goroutines always return nil; failures travel inside the
	// ToolResult.
	_ = g.Wait()
	return results, summaries
}
