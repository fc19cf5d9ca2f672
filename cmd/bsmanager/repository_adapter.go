package main

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/application"
	"github.com/example/bsmanager/internal/persistence"
)

type todoRepositoryAdapter struct {
	repo persistence.TodoRepository
}

func newTodoRepositoryAdapter(repo persistence.TodoRepository) *todoRepositoryAdapter {
	return &todoRepositoryAdapter{repo: repo}
}

func (a *todoRepositoryAdapter) CreateTodo(ctx context.Context, todo application.Todo) (application.Todo, error) {
	if err := a.repo.CreateTodo(ctx, toPersistenceTodo(todo)); err != nil {
		return application.Todo{}, err
	}
	stored, err := a.repo.GetTodo(ctx, todo.ID)
	if err != nil {
		return application.Todo{}, err
	}
	return toApplicationTodo(stored), nil
}

func (a *todoRepositoryAdapter) GetTodo(ctx context.Context, id string) (application.Todo, error) {
	stored, err := a.repo.GetTodo(ctx, id)
	if err != nil {
		return application.Todo{}, err
	}
	return toApplicationTodo(stored), nil
}

func (a *todoRepositoryAdapter) UpdateTodo(ctx context.Context, todo application.Todo) (application.Todo, error) {
	if err := a.repo.UpdateTodo(ctx, toPersistenceTodo(todo)); err != nil {
		return application.Todo{}, err
	}
	stored, err := a.repo.GetTodo(ctx, todo.ID)
	if err != nil {
		return application.Todo{}, err
	}
	return toApplicationTodo(stored), nil
}

func (a *todoRepositoryAdapter) DeleteTodo(ctx context.Context, id string) error {
	return a.repo.DeleteTodo(ctx, id)
}

func (a *todoRepositoryAdapter) ListTodos(ctx context.Context, filter application.TodoRepositoryFilter) ([]application.Todo, error) {
	models, err := a.repo.ListTodos(ctx, persistence.TodoFilter{
		DueFrom:  filter.DueFrom,
		DueTo:    filter.DueTo,
		Status:   string(filter.Status),
		SeriesID: filter.SeriesID,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationTodos(models), nil
}

func (a *todoRepositoryAdapter) ListRecurringTemplates(ctx context.Context) ([]application.Todo, error) {
	models, err := a.repo.ListRecurringTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationTodos(models), nil
}

func (a *todoRepositoryAdapter) ListTombstones(ctx context.Context, from, to civil.Date) ([]application.Todo, error) {
	models, err := a.repo.ListTombstones(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return toApplicationTodos(models), nil
}

func toApplicationTodos(models []persistence.Todo) []application.Todo {
	if len(models) == 0 {
		return nil
	}
	todos := make([]application.Todo, 0, len(models))
	for _, model := range models {
		todos = append(todos, toApplicationTodo(model))
	}
	return todos
}

func toApplicationTodo(model persistence.Todo) application.Todo {
	repeat := application.Repeat{Type: application.RepeatType(model.RepeatType)}
	if repeat.Type == "" {
		repeat.Type = application.RepeatNone
	}
	if model.RepeatDay != nil && repeat.Recurs() {
		repeat.Day = *model.RepeatDay
	}
	return application.Todo{
		ID:        model.ID,
		SeriesID:  model.SeriesID,
		Title:     model.Title,
		Content:   cloneString(model.Content),
		DueDate:   model.DueDate,
		Status:    application.Status(model.Status),
		Repeat:    repeat,
		IsDeleted: model.IsDeleted,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceTodo(todo application.Todo) persistence.Todo {
	var day *int
	if todo.Repeat.Recurs() {
		d := todo.Repeat.Day
		day = &d
	}
	repeatType := string(todo.Repeat.Type)
	if repeatType == "" {
		repeatType = persistence.RepeatNone
	}
	return persistence.Todo{
		ID:         todo.ID,
		SeriesID:   todo.SeriesID,
		Title:      todo.Title,
		Content:    cloneString(todo.Content),
		DueDate:    todo.DueDate,
		Status:     string(todo.Status),
		RepeatType: repeatType,
		RepeatDay:  day,
		IsDeleted:  todo.IsDeleted,
		CreatedAt:  todo.CreatedAt,
		UpdatedAt:  todo.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
