package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchat/taskchat/internal/db"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateAndGetTask(t *testing.T) {
	tasks := NewTasks(testDB(t))
	ctx := context.Background()

	created, err := tasks.Create(ctx, "alice", TaskParams{
		Title:       strPtr("buy groceries"),
		Description: strPtr("milk and eggs"),
		Priority:    strPtr("high"),
		Tags:        []string{"errands", "home"},
	})
	require.NoError(t, err)
	assert.Equal(t, "buy groceries", created.Title)
	assert.Equal(t, "milk and eggs", created.Description)
	assert.Equal(t, "high", created.Priority)
	assert.Equal(t, []string{"errands", "home"}, created.Tags)
	assert.False(t, created.Completed)

	got, err := tasks.Get(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = tasks.Get(ctx, "bob", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTaskValidation(t *testing.T) {
	tasks := NewTasks(testDB(t))
	ctx := context.Background()

	_, err := tasks.Create(ctx, "alice", TaskParams{Title: strPtr("")})
	assert.True(t, IsValidation(err))

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}
	_, err = tasks.Create(ctx, "alice", TaskParams{Title: strPtr(string(long))})
	assert.True(t, IsValidation(err))

	// Limits count characters, not bytes: 150 two-byte runes are fine,
	// 201 are not.
	_, err = tasks.Create(ctx, "alice", TaskParams{Title: strPtr(strings.Repeat("é", 150))})
	assert.NoError(t, err)
	_, err = tasks.Create(ctx, "alice", TaskParams{Title: strPtr(strings.Repeat("é", 201))})
	assert.True(t, IsValidation(err))
	_, err = tasks.Create(ctx, "alice", TaskParams{
		Title:       strPtr("ok"),
		Description: strPtr(strings.Repeat("汉", 1000)),
	})
	assert.NoError(t, err)

	_, err = tasks.Create(ctx, "alice", TaskParams{
		Title:    strPtr("ok"),
		Priority: strPtr("urgent"),
	})
	assert.True(t, IsValidation(err))

	_, err = tasks.Create(ctx, "alice", TaskParams{
		Title:      strPtr("ok"),
		Recurrence: strPtr("custom"),
	})
	assert.True(t, IsValidation(err), "custom recurrence needs an interval")

	_, err = tasks.Create(ctx, "alice", TaskParams{
		Title:              strPtr("ok"),
		Recurrence:         strPtr("custom"),
		RecurrenceInterval: intPtr(3),
	})
	assert.NoError(t, err)
}

func TestCompleteThenListFilters(t *testing.T) {
	tasks := NewTasks(testDB(t))
	ctx := context.Background()

	first, err := tasks.Create(ctx, "alice", TaskParams{Title: strPtr("first")})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, "alice", TaskParams{Title: strPtr("second")})
	require.NoError(t, err)

	done, err := tasks.Complete(ctx, "alice", first.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	completed, err := tasks.List(ctx, "alice", StatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)

	pending, err := tasks.List(ctx, "alice", StatusPending)
	require.NoError(t, err)
	for _, task := range pending {
		assert.NotEqual(t, first.ID, task.ID)
	}

	all, err := tasks.List(ctx, "alice", StatusAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListIsOwnerScopedAndNewestFirst(t *testing.T) {
	tasks := NewTasks(testDB(t))
	ctx := context.Background()

	_, err := tasks.Create(ctx, "alice", TaskParams{Title: strPtr("a1")})
	require.NoError(t, err)
	second, err := tasks.Create(ctx, "alice", TaskParams{Title: strPtr("a2")})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, "bob", TaskParams{Title: strPtr("b1")})
	require.NoError(t, err)

	list, err := tasks.List(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	for _, task := range list {
		assert.Equal(t, "alice", task.UserID)
	}

	_, err = tasks.List(ctx, "alice", "bogus")
	assert.True(t, IsValidation(err))
}

func TestOwnershipReadsAsNotFound(t *testing.T) {
	tasks := NewTasks(testDB(t))
	ctx := context.Background()

	task, err := tasks.Create(ctx, "alice", TaskParams{Title: strPtr("private")})
	require.NoError(t, err)

	_, err = tasks.Complete(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = tasks.Delete(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tasks.Update(ctx, "bob", task.ID, TaskParams{Title: strPtr("stolen")})
	assert.ErrorIs(t, err, ErrNotFound)

	// Still intact for the owner.
	got, err := tasks.Get(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
}

func TestUpdateTask(t *testing.T) {
	tasks := NewTasks(testDB(t))
	ctx := context.Background()

	task, err := tasks.Create(ctx, "alice", TaskParams{Title: strPtr("draft")})
	require.NoError(t, err)

	_, err = tasks.Update(ctx, "alice", task.ID, TaskParams{})
	assert.True(t, IsValidation(err), "at least one field required")

	due := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	updated, err := tasks.Update(ctx, "alice", task.ID, TaskParams{
		Title:   strPtr("final"),
		DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, due.Unix(), updated.DueDate.Unix())
}

func TestDeleteTask(t *testing.T) {
	tasks := NewTasks(testDB(t))
	ctx := context.Background()

	task, err := tasks.Create(ctx, "alice", TaskParams{Title: strPtr("temp")})
	require.NoError(t, err)

	require.NoError(t, tasks.Delete(ctx, "alice", task.ID))
	_, err = tasks.Get(ctx, "alice", task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = tasks.Delete(ctx, "alice", task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpawnDueRecurrences(t *testing.T) {
	tasks := NewTasks(testDB(t))
	ctx := context.Background()

	task, err := tasks.Create(ctx, "alice", TaskParams{
		Title:      strPtr("water plants"),
		Recurrence: strPtr("weekly"),
	})
	require.NoError(t, err)

	// Pending recurring tasks spawn nothing.
	n, err := tasks.SpawnDueRecurrences(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = tasks.Complete(ctx, "alice", task.ID)
	require.NoError(t, err)

	n, err = tasks.SpawnDueRecurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := tasks.List(ctx, "alice", StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "water plants", pending[0].Title)
	assert.Equal(t, "weekly", pending[0].Recurrence)
	require.NotNil(t, pending[0].DueDate)
	assert.True(t, pending[0].DueDate.After(time.Now()))

	// A second sweep does not spawn again for the same completion.
	n, err = tasks.SpawnDueRecurrences(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
