package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bsmanager/internal/application"
	tf "github.com/example/bsmanager/internal/testfixtures"
)

func TestTodoService_SetOccurrenceStatus(t *testing.T) {
	t.Parallel()

	t.Run("materializes an override for a virtual occurrence", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTodoService(t, teamSync())
		ctx := context.Background()

		override, err := svc.SetOccurrenceStatus(ctx, application.SetOccurrenceStatusParams{
			TodoID: "sync_2024-01-08",
			Status: application.StatusComplete,
		})
		require.NoError(t, err)
		assert.Equal(t, "todo-1", override.ID)
		assert.Equal(t, "sync", override.SeriesID)
		assert.Equal(t, tf.Date(2024, time.January, 8), override.DueDate)
		assert.Equal(t, application.RepeatNone, override.Repeat.Type)
		assert.Len(t, repo.All(), 2)

		toggled, err := svc.SetOccurrenceStatus(ctx, application.SetOccurrenceStatusParams{TodoID: "sync_2024-01-08"})
		require.NoError(t, err)
		assert.Equal(t, override.ID, toggled.ID, "second change updates the same override")
		assert.Equal(t, application.StatusIncomplete, toggled.Status)
		assert.Len(t, repo.All(), 2)

		template, err := svc.GetTodo(ctx, "sync")
		require.NoError(t, err)
		assert.Equal(t, application.StatusIncomplete, template.Status, "template is untouched")

		view, err := svc.ListView(ctx, application.ViewParams{
			Start: tf.DatePtr(2024, time.January, 8),
			End:   tf.DatePtr(2024, time.January, 8),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"todo-1"}, occurrenceIDs(view.Occurrences))
	})

	t.Run("template id with a date targets that occurrence", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTodoService(t, teamSync())
		todo, err := svc.SetOccurrenceStatus(context.Background(), application.SetOccurrenceStatusParams{
			TodoID: "sync",
			Date:   tf.DatePtr(2024, time.January, 15),
			Status: application.StatusComplete,
		})
		require.NoError(t, err)
		assert.Equal(t, tf.Date(2024, time.January, 15), todo.DueDate)
	})

	t.Run("reuses a legacy override matched by title", func(t *testing.T) {
		t.Parallel()

		legacy := tf.NewTodoFixture(tf.WithTodoID("legacy"), tf.WithTodoTitle("Team Sync"),
			tf.WithTodoDueDate(tf.Date(2024, time.January, 8))).Application()
		svc, repo, _ := newTodoService(t, teamSync(), legacy)

		todo, err := svc.SetOccurrenceStatus(context.Background(), application.SetOccurrenceStatusParams{
			TodoID: "sync",
			Date:   tf.DatePtr(2024, time.January, 8),
		})
		require.NoError(t, err)
		assert.Equal(t, "legacy", todo.ID)
		assert.Equal(t, application.StatusComplete, todo.Status)
		assert.Len(t, repo.All(), 2)
	})

	t.Run("rejects dates outside the series", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTodoService(t, teamSync())
		_, err := svc.SetOccurrenceStatus(context.Background(), application.SetOccurrenceStatusParams{
			TodoID: "sync",
			Date:   tf.DatePtr(2024, time.January, 9),
		})

		var vErr *application.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "date")
	})

	t.Run("plain records change in place", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTodoService(t, tf.NewTodoFixture(tf.WithTodoID("memo")).Application())
		todo, err := svc.SetOccurrenceStatus(context.Background(), application.SetOccurrenceStatusParams{TodoID: "memo"})
		require.NoError(t, err)
		assert.Equal(t, application.StatusComplete, todo.Status)
		assert.Len(t, repo.All(), 1)
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTodoService(t)
		_, err := svc.SetOccurrenceStatus(context.Background(), application.SetOccurrenceStatusParams{TodoID: "nope_2024-01-08"})
		assert.ErrorIs(t, err, application.ErrNotFound)
	})
}

func TestTodoService_DeleteOccurrence(t *testing.T) {
	t.Parallel()

	override := func() application.Todo {
		return tf.NewTodoFixture(tf.WithTodoID("sync-o"), tf.WithTodoTitle("Team Sync"), tf.WithTodoSeriesID("sync"),
			tf.WithTodoDueDate(tf.Date(2024, time.January, 15)), tf.WithTodoStatus(application.StatusComplete)).Application()
	}

	t.Run("single virtual occurrence becomes a tombstone", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTodoService(t, teamSync())
		require.NoError(t, svc.DeleteOccurrence(context.Background(), application.DeleteOccurrenceParams{
			TodoID: "sync_2024-01-08",
			Scope:  application.DeleteScopeSingle,
		}))

		stored := repo.All()
		require.Len(t, stored, 2)
		tombstone := stored[1]
		assert.Equal(t, "todo-1", tombstone.ID)
		assert.True(t, tombstone.IsDeleted)
		assert.Equal(t, "sync", tombstone.SeriesID)
		assert.Equal(t, tf.Date(2024, time.January, 8), tombstone.DueDate)
		assert.Empty(t, repo.Deleted)
	})

	t.Run("single delete of a template removes only its anchor", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTodoService(t, teamSync())
		ctx := context.Background()
		require.NoError(t, svc.DeleteOccurrence(ctx, application.DeleteOccurrenceParams{TodoID: "sync"}))

		view, err := svc.ListView(ctx, application.ViewParams{
			Start: tf.DatePtr(2024, time.January, 1),
			End:   tf.DatePtr(2024, time.January, 8),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"sync_2024-01-08"}, occurrenceIDs(view.Occurrences))
	})

	t.Run("series scope on a virtual occurrence deletes the template", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTodoService(t, teamSync())
		require.NoError(t, svc.DeleteOccurrence(context.Background(), application.DeleteOccurrenceParams{
			TodoID: "sync_2024-01-22",
			Scope:  application.DeleteScopeSeries,
		}))
		assert.Equal(t, []string{"sync"}, repo.Deleted)
		assert.Empty(t, repo.All())
	})

	t.Run("single scope on an override swaps it for a tombstone", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTodoService(t, teamSync(), override())
		ctx := context.Background()
		require.NoError(t, svc.DeleteOccurrence(ctx, application.DeleteOccurrenceParams{TodoID: "sync-o"}))
		assert.Equal(t, []string{"sync-o"}, repo.Deleted)

		view, err := svc.ListView(ctx, application.ViewParams{
			Start: tf.DatePtr(2024, time.January, 15),
			End:   tf.DatePtr(2024, time.January, 15),
		})
		require.NoError(t, err)
		assert.Empty(t, view.Occurrences, "occurrence stays hidden after the override is removed")
	})

	t.Run("series scope on an override deletes parent and override", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTodoService(t, teamSync(), override())
		require.NoError(t, svc.DeleteOccurrence(context.Background(), application.DeleteOccurrenceParams{
			TodoID: "sync-o",
			Scope:  application.DeleteScopeSeries,
		}))
		assert.Equal(t, []string{"sync", "sync-o"}, repo.Deleted)
		assert.Empty(t, repo.All())
	})

	t.Run("plain records ignore the scope", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTodoService(t, teamSync(), tf.NewTodoFixture(tf.WithTodoID("memo")).Application())
		require.NoError(t, svc.DeleteOccurrence(context.Background(), application.DeleteOccurrenceParams{
			TodoID: "memo",
			Scope:  application.DeleteScopeSeries,
		}))
		assert.Equal(t, []string{"memo"}, repo.Deleted)
		assert.Len(t, repo.All(), 1)
	})

	t.Run("rejects virtual ids off the series", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTodoService(t, teamSync())
		for _, id := range []string{"sync_2023-06-12", "sync_2024-01-10"} {
			err := svc.DeleteOccurrence(context.Background(), application.DeleteOccurrenceParams{TodoID: id})

			var vErr *application.ValidationError
			require.ErrorAs(t, err, &vErr, id)
			assert.Contains(t, vErr.FieldErrors, "date", id)
		}
		assert.Len(t, repo.All(), 1)
	})

	t.Run("rejects unknown scopes", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTodoService(t, teamSync())
		err := svc.DeleteOccurrence(context.Background(), application.DeleteOccurrenceParams{TodoID: "sync", Scope: "all"})

		var vErr *application.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "scope")
	})
}
