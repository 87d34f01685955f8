package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskchat/taskchat/internal/logging"
	"github.com/taskchat/taskchat/internal/store"
)

// storeResult converts a store call outcome into a ToolResult. Store
// failures are captured, not propagated, so the model can tell the user
// what went wrong in its own words.
func storeResult(v any, err error) (*ToolResult, error) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &ToolResult{Content: "Task not found", IsError: true}, nil
		}
		if store.IsValidation(err) {
			return &ToolResult{Content: err.Error(), IsError: true}, nil
		}
		logging.Errorf("[Tools] store error: %v", err)
		return &ToolResult{Content: "task store is temporarily unavailable", IsError: true}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &ToolResult{Content: string(data)}, nil
}

func parseDueDate(s *string) (*time.Time, *ToolResult) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, &ToolResult{
			Content: fmt.Sprintf("invalid due_date %q: must be an RFC 3339 timestamp", *s),
			IsError: true,
		}
	}
	return &t, nil
}

// AddTaskTool creates a new task for the calling user.
type AddTaskTool struct {
	tasks *store.Tasks
}

func NewAddTaskTool(tasks *store.Tasks) *AddTaskTool {
	return &AddTaskTool{tasks: tasks}
}

func (t *AddTaskTool) Name() string { return "add_task" }

func (t *AddTaskTool) Description() string {
	return "Create a new task for the user. Use this when the user wants to add, create, or make a new task."
}

func (t *AddTaskTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user's ID (set by the server)"},
			"title": {"type": "string", "description": "The title or name of the task (required, max 200 characters)"},
			"description": {"type": "string", "description": "Optional detailed description of the task"},
			"priority": {"type": "string", "enum": ["high", "medium", "low"], "description": "Optional task priority"},
			"due_date": {"type": "string", "description": "Optional due date as an RFC 3339 timestamp, e.g. 2026-09-01T09:00:00Z"},
			"tags": {"type": "array", "items": {"type": "string"}, "description": "Optional list of tags"},
			"recurrence": {"type": "string", "enum": ["daily", "weekly", "monthly", "custom"], "description": "Optional recurrence rule"},
			"recurrence_interval": {"type": "integer", "description": "Days between occurrences, required when recurrence is custom"}
		},
		"required": ["title"]
	}`)
}

func (t *AddTaskTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in struct {
		UserID             string   `json:"user_id"`
		Title              string   `json:"title"`
		Description        *string  `json:"description"`
		Priority           *string  `json:"priority"`
		DueDate            *string  `json:"due_date"`
		Tags               []string `json:"tags"`
		Recurrence         *string  `json:"recurrence"`
		RecurrenceInterval *int     `json:"recurrence_interval"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return &ToolResult{Content: "invalid input: " + err.Error(), IsError: true}, nil
	}

	due, bad := parseDueDate(in.DueDate)
	if bad != nil {
		return bad, nil
	}

	params := store.TaskParams{
		Title:              &in.Title,
		Description:        in.Description,
		Priority:           in.Priority,
		DueDate:            due,
		Tags:               in.Tags,
		Recurrence:         in.Recurrence,
		RecurrenceInterval: in.RecurrenceInterval,
	}
	task, err := t.tasks.Create(ctx, in.UserID, params)
	return storeResult(task, err)
}

// ListTasksTool lists the calling user's tasks with an optional status
// filter.
type ListTasksTool struct {
	tasks *store.Tasks
}

func NewListTasksTool(tasks *store.Tasks) *ListTasksTool {
	return &ListTasksTool{tasks: tasks}
}

func (t *ListTasksTool) Name() string { return "list_tasks" }

func (t *ListTasksTool) Description() string {
	return "Retrieve and list all tasks for the user. Supports filtering by status (all, pending, or completed)."
}

func (t *ListTasksTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user's ID (set by the server)"},
			"status": {"type": "string", "enum": ["all", "pending", "completed"], "description": "Filter tasks by status: 'all' (default), 'pending', or 'completed'"}
		},
		"required": []
	}`)
}

func (t *ListTasksTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in struct {
		UserID string `json:"user_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return &ToolResult{Content: "invalid input: " + err.Error(), IsError: true}, nil
	}

	tasks, err := t.tasks.List(ctx, in.UserID, in.Status)
	if err != nil {
		return storeResult(nil, err)
	}
	return storeResult(map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	}, nil)
}

// CompleteTaskTool marks one of the calling user's tasks as completed.
type CompleteTaskTool struct {
	tasks *store.Tasks
}

func NewCompleteTaskTool(tasks *store.Tasks) *CompleteTaskTool {
	return &CompleteTaskTool{tasks: tasks}
}

func (t *CompleteTaskTool) Name() string { return "complete_task" }

func (t *CompleteTaskTool) Description() string {
	return "Mark a specific task as completed. Use this when the user indicates they finished, completed, or are done with a task."
}

func (t *CompleteTaskTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user's ID (set by the server)"},
			"task_id": {"type": "integer", "description": "The ID of the task to mark as completed"}
		},
		"required": ["task_id"]
	}`)
}

func (t *CompleteTaskTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in struct {
		UserID string `json:"user_id"`
		TaskID int64  `json:"task_id"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return &ToolResult{Content: "invalid input: " + err.Error(), IsError: true}, nil
	}

	task, err := t.tasks.Complete(ctx, in.UserID, in.TaskID)
	return storeResult(task, err)
}

// DeleteTaskTool permanently removes one of the calling user's tasks.
type DeleteTaskTool struct {
	tasks *store.Tasks
}

func NewDeleteTaskTool(tasks *store.Tasks) *DeleteTaskTool {
	return &DeleteTaskTool{tasks: tasks}
}

func (t *DeleteTaskTool) Name() string { return "delete_task" }

func (t *DeleteTaskTool) Description() string {
	return "Permanently delete a task. Use this when the user wants to remove, delete, or get rid of a task."
}

func (t *DeleteTaskTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user's ID (set by the server)"},
			"task_id": {"type": "integer", "description": "The ID of the task to delete"}
		},
		"required": ["task_id"]
	}`)
}

func (t *DeleteTaskTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in struct {
		UserID string `json:"user_id"`
		TaskID int64  `json:"task_id"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return &ToolResult{Content: "invalid input: " + err.Error(), IsError: true}, nil
	}

	if err := t.tasks.Delete(ctx, in.UserID, in.TaskID); err != nil {
		return storeResult(nil, err)
	}
	return storeResult(map[string]any{
		"deleted": true,
		"task_id": in.TaskID,
	}, nil)
}

// UpdateTaskTool modifies fields of one of the calling user's tasks.
type UpdateTaskTool struct {
	tasks *store.Tasks
}

func NewUpdateTaskTool(tasks *store.Tasks) *UpdateTaskTool {
	return &UpdateTaskTool{tasks: tasks}
}

func (t *UpdateTaskTool) Name() string { return "update_task" }

func (t *UpdateTaskTool) Description() string {
	return "Update a task's title, description, or other fields. Use this when the user wants to modify, change, edit, or update a task."
}

func (t *UpdateTaskTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user's ID (set by the server)"},
			"task_id": {"type": "integer", "description": "The ID of the task to update"},
			"title": {"type": "string", "description": "New task title"},
			"description": {"type": "string", "description": "New task description"},
			"priority": {"type": "string", "enum": ["high", "medium", "low"], "description": "New task priority"},
			"due_date": {"type": "string", "description": "New due date as an RFC 3339 timestamp"},
			"tags": {"type": "array", "items": {"type": "string"}, "description": "Replacement list of tags"},
			"recurrence": {"type": "string", "enum": ["daily", "weekly", "monthly", "custom"], "description": "New recurrence rule"},
			"recurrence_interval": {"type": "integer", "description": "Days between occurrences, required when recurrence is custom"}
		},
		"required": ["task_id"]
	}`)
}

func (t *UpdateTaskTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in struct {
		UserID             string   `json:"user_id"`
		TaskID             int64    `json:"task_id"`
		Title              *string  `json:"title"`
		Description        *string  `json:"description"`
		Priority           *string  `json:"priority"`
		DueDate            *string  `json:"due_date"`
		Tags               []string `json:"tags"`
		Recurrence         *string  `json:"recurrence"`
		RecurrenceInterval *int     `json:"recurrence_interval"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return &ToolResult{Content: "invalid input: " + err.Error(), IsError: true}, nil
	}

	due, bad := parseDueDate(in.DueDate)
	if bad != nil {
		return bad, nil
	}

	params := store.TaskParams{
		Title:              in.Title,
		Description:        in.Description,
		Priority:           in.Priority,
		DueDate:            due,
		Tags:               in.Tags,
		Recurrence:         in.Recurrence,
		RecurrenceInterval: in.RecurrenceInterval,
	}
	task, err := t.tasks.Update(ctx, in.UserID, in.TaskID, params)
	return storeResult(task, err)
}

// RegisterTaskTools wires the five task tools into a registry.
func RegisterTaskTools(r *Registry, tasks *store.Tasks) {
	r.Register(NewAddTaskTool(tasks))
	r.Register(NewListTasksTool(tasks))
	r.Register(NewCompleteTaskTool(tasks))
	r.Register(NewDeleteTaskTool(tasks))
	r.Register(NewUpdateTaskTool(tasks))
}
