// Package persistencetest holds the behavioral test suite every to-do data
// source must pass.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bsmanager/internal/persistence"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) persistence.TodoRepository

var base = time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)

func date(t *testing.T, value string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(value)
	require.NoError(t, err)
	return d
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func todo(t *testing.T, id, due string, createdOffset time.Duration) persistence.Todo {
	t.Helper()
	created := base.Add(createdOffset)
	return persistence.Todo{
		ID:         id,
		Title:      "todo " + id,
		DueDate:    date(t, due),
		Status:     persistence.StatusIncomplete,
		RepeatType: persistence.RepeatNone,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func ids(todos []persistence.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, td := range todos {
		out = append(out, td.ID)
	}
	return out
}

// Run exercises the repository contract against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("creates, reads, updates, and deletes to-dos", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		item := todo(t, "todo-1", "2024-01-10", 0)
		item.Content = strPtr("call the client back")
		require.NoError(t, repo.CreateTodo(ctx, item))

		fetched, err := repo.GetTodo(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.Title, fetched.Title)
		assert.Equal(t, item.DueDate, fetched.DueDate)
		require.NotNil(t, fetched.Content)
		assert.Equal(t, "call the client back", *fetched.Content)
		assert.Nil(t, fetched.RepeatDay)
		assert.True(t, fetched.CreatedAt.Equal(item.CreatedAt), "created_at %v != %v", fetched.CreatedAt, item.CreatedAt)

		item.Status = persistence.StatusComplete
		item.Content = nil
		item.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, repo.UpdateTodo(ctx, item))

		fetched, err = repo.GetTodo(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, persistence.StatusComplete, fetched.Status)
		assert.Nil(t, fetched.Content)
		assert.True(t, fetched.UpdatedAt.Equal(item.UpdatedAt))

		require.NoError(t, repo.DeleteTodo(ctx, item.ID))
		_, err = repo.GetTodo(ctx, item.ID)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteTodo(ctx, item.ID), persistence.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateTodo(ctx, item), persistence.ErrNotFound)
	})

	t.Run("rejects duplicate identifiers", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		item := todo(t, "dup", "2024-01-10", 0)
		require.NoError(t, repo.CreateTodo(ctx, item))
		assert.ErrorIs(t, repo.CreateTodo(ctx, item), persistence.ErrDuplicate)
	})

	t.Run("filters and orders ListTodos", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		early := todo(t, "early", "2024-01-05", 0)
		sameDayOld := todo(t, "same-old", "2024-01-10", time.Minute)
		sameDayNew := todo(t, "same-new", "2024-01-10", 2*time.Minute)
		done := todo(t, "done", "2024-01-12", 0)
		done.Status = persistence.StatusComplete
		outside := todo(t, "outside", "2024-02-01", 0)
		tombstone := todo(t, "tomb", "2024-01-11", 0)
		tombstone.IsDeleted = true
		tombstone.SeriesID = "series-1"

		for _, td := range []persistence.Todo{outside, sameDayOld, done, early, tombstone, sameDayNew} {
			require.NoError(t, repo.CreateTodo(ctx, td))
		}

		from, to := date(t, "2024-01-01"), date(t, "2024-01-31")

		listed, err := repo.ListTodos(ctx, persistence.TodoFilter{DueFrom: &from, DueTo: &to})
		require.NoError(t, err)
		assert.Equal(t, []string{"early", "same-new", "same-old", "done"}, ids(listed))

		listed, err = repo.ListTodos(ctx, persistence.TodoFilter{DueFrom: &from, DueTo: &to, IncludeDeleted: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"early", "same-new", "same-old", "tomb", "done"}, ids(listed))

		listed, err = repo.ListTodos(ctx, persistence.TodoFilter{Status: persistence.StatusComplete})
		require.NoError(t, err)
		assert.Equal(t, []string{"done"}, ids(listed))

		listed, err = repo.ListTodos(ctx, persistence.TodoFilter{SeriesID: "series-1", IncludeDeleted: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"tomb"}, ids(listed))

		listed, err = repo.ListTodos(ctx, persistence.TodoFilter{DueFrom: &to})
		require.NoError(t, err)
		assert.Equal(t, []string{"outside"}, ids(listed))
	})

	t.Run("lists live recurring templates newest first", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		weekly := todo(t, "weekly", "2024-01-01", 0)
		weekly.RepeatType = persistence.RepeatWeekly
		weekly.RepeatDay = intPtr(1)
		weekly.SeriesID = "weekly"
		monthly := todo(t, "monthly", "2024-01-31", time.Hour)
		monthly.RepeatType = persistence.RepeatMonthly
		monthly.RepeatDay = intPtr(-1)
		monthly.SeriesID = "monthly"
		plain := todo(t, "plain", "2024-01-03", 2*time.Hour)

		for _, td := range []persistence.Todo{weekly, monthly, plain} {
			require.NoError(t, repo.CreateTodo(ctx, td))
		}

		templates, err := repo.ListRecurringTemplates(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"monthly", "weekly"}, ids(templates))
		require.NotNil(t, templates[0].RepeatDay)
		assert.Equal(t, -1, *templates[0].RepeatDay)
		assert.Equal(t, persistence.RepeatMonthly, templates[0].RepeatType)
	})

	t.Run("lists tombstones within an inclusive range", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		for _, due := range []string{"2024-03-30", "2024-03-31", "2024-04-30", "2024-05-01"} {
			tomb := todo(t, "tomb-"+due, due, 0)
			tomb.Title = "Rent"
			tomb.IsDeleted = true
			require.NoError(t, repo.CreateTodo(ctx, tomb))
		}
		require.NoError(t, repo.CreateTodo(ctx, todo(t, "live", "2024-04-01", 0)))

		tombstones, err := repo.ListTombstones(ctx, date(t, "2024-03-31"), date(t, "2024-04-30"))
		require.NoError(t, err)
		assert.Equal(t, []string{"tomb-2024-03-31", "tomb-2024-04-30"}, ids(tombstones))
	})
}
