package store

import (
	"context"
	"database/sql"
	"time"
)

// Message roles stored in the messages table.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation groups the messages of one chat thread for one user.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one persisted chat turn entry. ToolCalls holds the JSON
// summary recorded alongside assistant messages, empty otherwise.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ToolCalls      string    `json:"tool_calls,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversations is the conversation + message store.
type Conversations struct {
	db *sql.DB
}

// NewConversations creates a conversation store over the shared database
// connection.
func NewConversations(db *sql.DB) *Conversations {
	return &Conversations{db: db}
}

// GetOrCreate resolves the conversation for a chat turn. With a nil id a
// fresh conversation is created; with an id the conversation must exist
// and belong to userID, otherwise ErrNotFound.
func (c *Conversations) GetOrCreate(ctx context.Context, userID string, conversationID *int64) (*Conversation, error) {
	if conversationID != nil {
		return c.Get(ctx, userID, *conversationID)
	}

	now := time.Now().Unix()
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, created_at, updated_at) VALUES (?, ?, ?)`,
		userID, now, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Conversation{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}, nil
}

// Get returns a conversation owned by userID, or ErrNotFound.
func (c *Conversations) Get(ctx context.Context, userID string, id int64) (*Conversation, error) {
	var conv Conversation
	var createdAt, updatedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&conv.ID, &conv.UserID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.UpdatedAt = time.Unix(updatedAt, 0)
	return &conv, nil
}

// LoadHistory returns every message of a conversation in creation order.
func (c *Conversations) LoadHistory(ctx context.Context, conversationID int64) ([]Message, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, tool_calls, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var toolCalls sql.NullString
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &toolCalls, &createdAt); err != nil {
			return nil, err
		}
		m.ToolCalls = toolCalls.String
		m.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// AppendMessage persists one message and bumps the conversation's
// updated_at. toolCalls is the JSON summary for assistant messages and
// may be empty.
func (c *Conversations) AppendMessage(ctx context.Context, conversationID int64, role, content, toolCalls string) (*Message, error) {
	now := time.Now().Unix()

	var tc sql.NullString
	if toolCalls != "" {
		tc = sql.NullString{String: toolCalls, Valid: true}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, tool_calls, created_at) VALUES (?, ?, ?, ?, ?)`,
		conversationID, role, content, tc, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		now, conversationID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		ToolCalls:      toolCalls,
		CreatedAt:      time.Unix(now, 0),
	}, nil
}
