package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/taskchat/taskchat/internal/agent/ai"
	"github.com/taskchat/taskchat/internal/logging"
)

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool interface that all tools must implement.
type Tool interface {
	// Name returns the tool's unique name
	Name() string

	// Description returns a description for the model
	Description() string

	// Schema returns the JSON schema for the tool's input
	Schema() json.RawMessage

	// Execute runs the tool with the given input
	Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error)
}

// Registry manages available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	if existing, ok := r.tools[tool.Name()]; ok {
		logging.Warnf("[Registry] tool %q already registered (%T), overwritten by %T",
			tool.Name(), existing, tool)
	}
	r.tools[tool.Name()] = tool
	r.mu.Unlock()
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all tools as model tool definitions, sorted by name so the
// prompt payload is stable across requests.
func (r *Registry) List() []ai.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ai.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, ai.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs a tool and returns the result. Errors never propagate:
// unknown tools, panics, and execution failures all come back as an error
// ToolResult the model can read.
func (r *Registry) Execute(ctx context.Context, toolCall *ai.ToolCall) (result *ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Errorf("[Registry] tool %s panicked: %v", toolCall.Name, rec)
			result = &ToolResult{
				Content: fmt.Sprintf("tool %s failed unexpectedly", toolCall.Name),
				IsError: true,
			}
		}
	}()

	r.mu.RLock()
	tool, ok := r.tools[toolCall.Name]
	r.mu.RUnlock()

	if !ok {
		r.mu.RLock()
		available := make([]string, 0, len(r.tools))
		for name := range r.tools {
			available = append(available, name)
		}
		r.mu.RUnlock()
		sort.Strings(available)

		logging.Warnf("[Registry] unknown tool: %s", toolCall.Name)
		return &ToolResult{
			Content: fmt.Sprintf("TOOL ERROR: %q does not exist. Do NOT call it again. Your available tools are: %s",
				toolCall.Name, strings.Join(available, ", ")),
			IsError: true,
		}
	}

	logging.Debugf("[Registry] executing tool: %s", toolCall.Name)

	res, err := tool.Execute(ctx, toolCall.Input)
	if err != nil {
		return &ToolResult{Content: err.Error(), IsError: true}
	}
	return res
}
