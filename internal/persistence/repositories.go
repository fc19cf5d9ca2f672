package persistence

import (
	"context"
	"sort"

	"cloud.google.com/go/civil"
)

// TodoFilter narrows to-do queries. Zero values mean "no constraint".
type TodoFilter struct {
	DueFrom        *civil.Date
	DueTo          *civil.Date
	Status         string
	IncludeDeleted bool
	SeriesID       string
}

// TodoRepository stores to-dos, recurring templates and tombstones.
//
// ListTodos orders by due date ascending, then creation time descending.
// ListRecurringTemplates orders by creation time descending.
type TodoRepository interface {
	CreateTodo(ctx context.Context, todo Todo) error
	UpdateTodo(ctx context.Context, todo Todo) error
	GetTodo(ctx context.Context, id string) (Todo, error)
	ListTodos(ctx context.Context, filter TodoFilter) ([]Todo, error)
	ListRecurringTemplates(ctx context.Context) ([]Todo, error)
	ListTombstones(ctx context.Context, from, to civil.Date) ([]Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Matches reports whether the row satisfies the filter. Data sources that
// cannot express the whole filter in their query language apply it here.
func (f TodoFilter) Matches(todo Todo) bool {
	if todo.IsDeleted && !f.IncludeDeleted {
		return false
	}
	if f.DueFrom != nil && todo.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueTo != nil && todo.DueDate.After(*f.DueTo) {
		return false
	}
	if f.Status != "" && todo.Status != f.Status {
		return false
	}
	if f.SeriesID != "" && todo.SeriesID != f.SeriesID {
		return false
	}
	return true
}

// SortByDueDate orders rows by due date ascending, newest first within a day.
func SortByDueDate(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		if a.DueDate != b.DueDate {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortByCreatedDesc orders rows newest first.
func SortByCreatedDesc(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
