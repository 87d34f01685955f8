package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// Task status filter values for ListTasks.
const (
	StatusAll       = "all"
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Task is a single owner-scoped todo item.
type Task struct {
	ID                 int64      `json:"id"`
	UserID             string     `json:"user_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Completed          bool       `json:"completed"`
	Priority           string     `json:"priority,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	Recurrence         string     `json:"recurrence,omitempty"`
	RecurrenceInterval int        `json:"recurrence_interval,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TaskParams carries the writable task fields. Pointer fields distinguish
// "not provided" from zero values on update.
type TaskParams struct {
	Title              *string
	Description        *string
	Priority           *string
	DueDate            *time.Time
	Tags               []string
	Recurrence         *string
	RecurrenceInterval *int
}

// Tasks is the task store: plain SQL, owner-scoped on every query.
type Tasks struct {
	db *sql.DB
}

// NewTasks creates a task store over the shared database connection.
func NewTasks(db *sql.DB) *Tasks {
	return &Tasks{db: db}
}

// ValidateTitle checks the 1-200 character title constraint.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return &ValidationError{Field: "title", Reason: "must be at most 200 characters"}
	}
	return nil
}

// ValidateDescription checks the optional description length constraint.
func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return &ValidationError{Field: "description", Reason: "must be at most 1000 characters"}
	}
	return nil
}

// ValidateStatus checks the list filter enum.
func ValidateStatus(status string) error {
	switch status {
	case "", StatusAll, StatusPending, StatusCompleted:
		return nil
	}
	return &ValidationError{Field: "status", Reason: "must be one of: all, pending, completed"}
}

// ValidatePriority checks the optional priority enum.
func ValidatePriority(priority string) error {
	switch priority {
	case "", "high", "medium", "low":
		return nil
	}
	return &ValidationError{Field: "priority", Reason: "must be one of: high, medium, low"}
}

// ValidateRecurrence checks the recurrence rule and its interval together.
func ValidateRecurrence(recurrence string, interval int) error {
	switch recurrence {
	case "":
		return nil
	case "daily", "weekly", "monthly":
		return nil
	case "custom":
		if interval < 1 {
			return &ValidationError{Field: "recurrence_interval", Reason: "must be a positive number of days when recurrence is custom"}
		}
		return nil
	}
	return &ValidationError{Field: "recurrence", Reason: "must be one of: daily, weekly, monthly, custom"}
}

func validateParams(p TaskParams) error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := ValidateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if err := ValidatePriority(*p.Priority); err != nil {
			return err
		}
	}
	if p.Recurrence != nil {
		interval := 0
		if p.RecurrenceInterval != nil {
			interval = *p.RecurrenceInterval
		}
		if err := ValidateRecurrence(*p.Recurrence, interval); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a new pending task owned by userID. Title is required;
// everything else is optional.
func (t *Tasks) Create(ctx context.Context, userID string, p TaskParams) (*Task, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if p.Title == nil {
		return nil, &ValidationError{Field: "title", Reason: "is required"}
	}
	if err := validateParams(p); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(*p.Title)
	now := time.Now().Unix()

	var description, priority, recurrence sql.NullString
	var dueDate, recurrenceInterval sql.NullInt64
	if p.Description != nil && strings.TrimSpace(*p.Description) != "" {
		description = sql.NullString{String: strings.TrimSpace(*p.Description), Valid: true}
	}
	if p.Priority != nil && *p.Priority != "" {
		priority = sql.NullString{String: *p.Priority, Valid: true}
	}
	if p.DueDate != nil {
		dueDate = sql.NullInt64{Int64: p.DueDate.Unix(), Valid: true}
	}
	if p.Recurrence != nil && *p.Recurrence != "" {
		recurrence = sql.NullString{String: *p.Recurrence, Valid: true}
		if p.RecurrenceInterval != nil {
			recurrenceInterval = sql.NullInt64{Int64: int64(*p.RecurrenceInterval), Valid: true}
		}
	}
	tags, err := marshalTags(p.Tags)
	if err != nil {
		return nil, err
	}

	res, err := t.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, priority, due_date, tags, recurrence, recurrence_interval, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		userID, title, description, priority, dueDate, tags, recurrence, recurrenceInterval, now, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return t.Get(ctx, userID, id)
}

// Get returns a task owned by userID, or ErrNotFound.
func (t *Tasks) Get(ctx context.Context, userID string, id int64) (*Task, error) {
	row := t.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, completed, priority, due_date, tags, recurrence, recurrence_interval, created_at, updated_at
		FROM tasks WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	return scanTask(row)
}

// List returns tasks owned by userID, newest first, optionally filtered
// by status (all, pending, completed). An empty status means all.
func (t *Tasks) List(ctx context.Context, userID, status string) ([]Task, error) {
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, title, description, completed, priority, due_date, tags, recurrence, recurrence_interval, created_at, updated_at
		FROM tasks WHERE user_id = ?`
	switch status {
	case StatusPending:
		query += ` AND completed = 0`
	case StatusCompleted:
		query += ` AND completed = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := t.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// Complete marks a task as completed. Returns ErrNotFound when the task
// does not exist or belongs to another user.
func (t *Tasks) Complete(ctx context.Context, userID string, id int64) (*Task, error) {
	now := time.Now().Unix()
	res, err := t.db.ExecContext(ctx,
		`UPDATE tasks SET completed = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		now, id, userID,
	)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return t.Get(ctx, userID, id)
}

// Delete removes a task. Returns ErrNotFound when the task does not exist
// or belongs to another user.
func (t *Tasks) Delete(ctx context.Context, userID string, id int64) error {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Update changes the provided fields of a task. At least one field must be
// set. Returns ErrNotFound on missing or foreign-owned tasks.
func (t *Tasks) Update(ctx context.Context, userID string, id int64, p TaskParams) (*Task, error) {
	if p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && p.Tags == nil && p.Recurrence == nil {
		return nil, &ValidationError{Field: "update", Reason: "at least one field must be provided"}
	}
	if err := validateParams(p); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().Unix()}
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, strings.TrimSpace(*p.Title))
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, strings.TrimSpace(*p.Description))
	}
	if p.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, nullIfEmpty(*p.Priority))
	}
	if p.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, p.DueDate.Unix())
	}
	if p.Tags != nil {
		tags, err := marshalTags(p.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	if p.Recurrence != nil {
		sets = append(sets, "recurrence = ?", "recurrence_spawned = 0")
		args = append(args, nullIfEmpty(*p.Recurrence))
		if p.RecurrenceInterval != nil {
			sets = append(sets, "recurrence_interval = ?")
			args = append(args, *p.RecurrenceInterval)
		}
	}
	args = append(args, id, userID)

	res, err := t.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return t.Get(ctx, userID, id)
}

// SpawnDueRecurrences creates the next occurrence for every completed
// recurring task that has not spawned one yet. Returns the number of
// tasks created. Each spawn is a single transaction.
func (t *Tasks) SpawnDueRecurrences(ctx context.Context) (int, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, completed, priority, due_date, tags, recurrence, recurrence_interval, created_at, updated_at
		FROM tasks
		WHERE completed = 1 AND recurrence IS NOT NULL AND recurrence != '' AND recurrence_spawned = 0`)
	if err != nil {
		return 0, err
	}
	var due []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		due = append(due, *task)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	spawned := 0
	for _, task := range due {
		if err := t.spawnNext(ctx, task); err != nil {
			return spawned, err
		}
		spawned++
	}
	return spawned, nil
}

// spawnNext inserts the next occurrence of a completed recurring task and
// marks the source so it only spawns once.
func (t *Tasks) spawnNext(ctx context.Context, task Task) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	next := nextDueDate(task, now)

	var description, priority, recurrence sql.NullString
	var recurrenceInterval sql.NullInt64
	if task.Description != "" {
		description = sql.NullString{String: task.Description, Valid: true}
	}
	if task.Priority != "" {
		priority = sql.NullString{String: task.Priority, Valid: true}
	}
	recurrence = sql.NullString{String: task.Recurrence, Valid: true}
	if task.RecurrenceInterval > 0 {
		recurrenceInterval = sql.NullInt64{Int64: int64(task.RecurrenceInterval), Valid: true}
	}
	tags, err := marshalTags(task.Tags)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, priority, due_date, tags, recurrence, recurrence_interval, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		task.UserID, task.Title, description, priority, next.Unix(), tags, recurrence, recurrenceInterval, now.Unix(), now.Unix(),
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET recurrence_spawned = 1 WHERE id = ?`, task.ID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// nextDueDate advances a recurring task's due date by its rule. Without a
// due date the next occurrence is measured from completion time.
func nextDueDate(task Task, now time.Time) time.Time {
	base := now
	if task.DueDate != nil && task.DueDate.After(now) {
		base = *task.DueDate
	}
	switch task.Recurrence {
	case "daily":
		return base.AddDate(0, 0, 1)
	case "weekly":
		return base.AddDate(0, 0, 7)
	case "monthly":
		return base.AddDate(0, 0, 30)
	case "custom":
		interval := task.RecurrenceInterval
		if interval < 1 {
			interval = 1
		}
		return base.AddDate(0, 0, interval)
	}
	return base
}

func marshalTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var task Task
	var description, priority, tags, recurrence sql.NullString
	var dueDate, recurrenceInterval sql.NullInt64
	var completed int
	var createdAt, updatedAt int64

	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &description, &completed,
		&priority, &dueDate, &tags, &recurrence, &recurrenceInterval,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.Completed = completed != 0
	task.Priority = priority.String
	if dueDate.Valid {
		d := time.Unix(dueDate.Int64, 0)
		task.DueDate = &d
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &task.Tags); err != nil {
			task.Tags = nil
		}
	}
	task.Recurrence = recurrence.String
	task.RecurrenceInterval = int(recurrenceInterval.Int64)
	task.CreatedAt = time.Unix(createdAt, 0)
	task.UpdatedAt = time.Unix(updatedAt, 0)
	return &task, nil
}
