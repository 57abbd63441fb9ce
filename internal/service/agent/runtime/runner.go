// Package runtime executes a compiled agent tree in memory. One runner
// drives the whole hierarchy: the root agent answers user queries, and
// tool calls it emits are resolved by recursively running the child
// agents, depth-first, one at a time.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/agent"
)

// Event is one observable step of an invocation: one model round of some
// agent in the tree. The terminal event of an invocation is marked final;
// a transport failure terminates the stream with Err set on a final event.
type Event struct {
	ID           string
	InvocationID string
	Author       string
	Text         string
	ToolCalls    []domainllm.ToolCall
	Final        bool
	Err          error
}

// ProviderResolver maps a model name to the provider serving it.
type ProviderResolver interface {
	GetProvider(model string) (domainllm.LLMProvider, error)
}

// Runner executes a compiled agent tree against one provider registry,
// with per-session artifact and conversation state.
type Runner struct {
	root      *agent.AgentSpec
	providers ProviderResolver
	artifacts *ArtifactStore
	sessions  *SessionStore
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRunner creates a runner for a compiled tree.
func NewRunner(root *agent.AgentSpec, providers ProviderResolver, artifacts *ArtifactStore, sessions *SessionStore, logger *slog.Logger) *Runner {
	return &Runner{
		root:      root,
		providers: providers,
		artifacts: artifacts,
		sessions:  sessions,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Artifacts exposes the runner's artifact store, for uploading the video
// before querying.
func (r *Runner) Artifacts() *ArtifactStore {
	return r.artifacts
}

// sessionLock returns the lock serializing queries within one session.
func (r *Runner) sessionLock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}

// Run submits one user message to the root agent and streams the
// invocation's events. The channel is closed when the invocation
// completes; a transport fault ends the stream with a final event
// carrying the error. Only one invocation runs per session at a time.
func (r *Runner) Run(ctx context.Context, userID, sessionID, message string) (<-chan Event, error) {
	if message == "" {
		return nil, fmt.Errorf("empty message")
	}

	lock := r.sessionLock(sessionID)
	lock.Lock()

	invocationID := uuid.NewString()
	events := make(chan Event, 16)

	r.logger.Info("invocation started",
		"invocation_id", invocationID,
		"user_id", userID,
		"session_id", sessionID,
		"agent", r.root.Name,
	)

	go func() {
		defer lock.Unlock()
		defer close(events)

		emit := func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		if _, err := r.runAgent(ctx, r.root, invocationID, sessionID, message, emit); err != nil {
			r.logger.Error("invocation failed",
				"invocation_id", invocationID,
				"agent", r.root.Name,
				"error", err,
			)
			emit(Event{
				ID:           uuid.NewString(),
				InvocationID: invocationID,
				Author:       r.root.Name,
				Final:        true,
				Err:          err,
			})
		}
	}()

	return events, nil
}

// runAgent drives one agent's provider loop for a single user turn and
// returns its final text. Tool calls are resolved by running the named
// child agent with the call's request as its user turn; children run
// sequentially, and their events interleave into the same stream.
func (r *Runner) runAgent(ctx context.Context, spec *agent.AgentSpec, invocationID, sessionID, userText string, emit func(Event)) (string, error) {
	provider, err := r.providers.GetProvider(spec.Model)
	if err != nil {
		return "", fmt.Errorf("resolving provider for agent %s: %w", spec.Name, err)
	}

	history := r.sessions.History(sessionID, spec.Name)
	persisted := len(history)
	history = append(history, domainllm.Message{
		Role:  "user",
		Parts: []domainllm.ContentPart{domainllm.TextPart(userText)},
	})

	call := &agent.CallContext{SessionID: sessionID, Artifacts: r.artifacts}

	for {
		req := &domainllm.GenerateRequest{
			Model:    spec.Model,
			System:   spec.Instruction,
			Messages: cloneMessages(history),
			Tools:    toolDefinitions(spec.Tools),
		}

		// The hook mutates only this round's request copy; attached
		// clips are never persisted into history.
		if spec.BeforeModel != nil {
			if err := spec.BeforeModel(ctx, call, req); err != nil {
				return "", fmt.Errorf("before-model hook for agent %s: %w", spec.Name, err)
			}
		}

		resp, err := provider.GenerateResponse(ctx, req)
		if err != nil {
			return "", fmt.Errorf("agent %s generation failed: %w", spec.Name, err)
		}

		final := len(resp.ToolCalls) == 0
		emit(Event{
			ID:           uuid.NewString(),
			InvocationID: invocationID,
			Author:       spec.Name,
			Text:         resp.Text,
			ToolCalls:    resp.ToolCalls,
			Final:        final,
		})

		history = append(history, domainllm.Message{
			Role:      "assistant",
			Parts:     []domainllm.ContentPart{domainllm.TextPart(resp.Text)},
			ToolCalls: resp.ToolCalls,
		})

		if final {
			r.sessions.Append(sessionID, spec.Name, history[persisted:]...)
			r.sessions.SetState(sessionID, spec.OutputKey, resp.Text)
			return resp.Text, nil
		}

		for _, tc := range resp.ToolCalls {
			child := childByName(spec, tc.Name)
			if child == nil {
				return "", fmt.Errorf("agent %s requested unknown tool %q", spec.Name, tc.Name)
			}

			result, err := r.runAgent(ctx, child, invocationID, sessionID, toolRequest(tc), emit)
			if err != nil {
				return "", err
			}

			history = append(history, domainllm.Message{
				Role:       "tool",
				ToolCallID: tc.ID,
				Parts:      []domainllm.ContentPart{domainllm.TextPart(result)},
			})
		}
	}
}

// toolRequest extracts the forwarded question from a tool call. A call
// without the expected string parameter falls back to its raw input.
func toolRequest(tc domainllm.ToolCall) string {
	if request, ok := tc.Input["request"].(string); ok && request != "" {
		return request
	}
	raw, err := json.Marshal(tc.Input)
	if err != nil {
		return ""
	}
	return string(raw)
}

// toolDefinitions exposes each child spec as a single-parameter function
// tool, preserving child order.
func toolDefinitions(children []*agent.AgentSpec) []domainllm.ToolDefinition {
	if len(children) == 0 {
		return nil
	}
	defs := make([]domainllm.ToolDefinition, len(children))
	for i, child := range children {
		defs[i] = domainllm.ToolDefinition{
			Name:        child.Name,
			Description: child.Description,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"request": map[string]interface{}{
						"type":        "string",
						"description": "The question to forward to this agent.",
					},
				},
				"required": []string{"request"},
			},
		}
	}
	return defs
}

func childByName(spec *agent.AgentSpec, name string) *agent.AgentSpec {
	for _, child := range spec.Tools {
		if child.Name == name {
			return child
		}
	}
	return nil
}

func cloneMessages(messages []domainllm.Message) []domainllm.Message {
	cloned := make([]domainllm.Message, len(messages))
	copy(cloned, messages)
	for i := range cloned {
		parts := make([]domainllm.ContentPart, len(cloned[i].Parts))
		copy(parts, cloned[i].Parts)
		cloned[i].Parts = parts
	}
	return cloned
}
