// Package types holds the request and response shapes of the HTTP API.
package types

// ToolCallSummary reports one tool invocation in the chat envelope.
type ToolCallSummary struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ChatRequest is the body of POST /api/{userId}/chat.
type ChatRequest struct {
	UserID         string `path:"userId" json:"-"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse is the chat envelope.
type ChatResponse struct {
	ConversationID int64             `json:"conversation_id"`
	Response       string            `json:"response"`
	ToolCalls      []ToolCallSummary `json:"tool_calls"`
}

// CreateTaskRequest is the body of POST /api/{userId}/tasks.
type CreateTaskRequest struct {
	UserID             string   `path:"userId" json:"-"`
	Title              *string  `json:"title"`
	Description        *string  `json:"description,omitempty"`
	Priority           *string  `json:"priority,omitempty"`
	DueDate            *string  `json:"due_date,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Recurrence         *string  `json:"recurrence,omitempty"`
	RecurrenceInterval *int     `json:"recurrence_interval,omitempty"`
}

// UpdateTaskRequest is the body of PUT /api/{userId}/tasks/{taskId}.
type UpdateTaskRequest struct {
	UserID             string   `path:"userId" json:"-"`
	TaskID             int64    `path:"taskId" json:"-"`
	Title              *string  `json:"title,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Priority           *string  `json:"priority,omitempty"`
	DueDate            *string  `json:"due_date,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Recurrence         *string  `json:"recurrence,omitempty"`
	RecurrenceInterval *int     `json:"recurrence_interval,omitempty"`
}

// ListTasksRequest carries the path and query of GET /api/{userId}/tasks.
type ListTasksRequest struct {
	UserID string `path:"userId"`
	Status string `form:"status"`
}

// TaskRequest addresses one task by path.
type TaskRequest struct {
	UserID string `path:"userId"`
	TaskID int64  `path:"taskId"`
}

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status string `json:"status"`
}
