package testfixtures

import (
	"context"
	"sort"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/application"
)

// TodoRepository is an in-memory application.TodoRepository for service
// tests. Setting one of the *Err fields makes the matching call fail.
type TodoRepository struct {
	mu    sync.Mutex
	todos map[string]application.Todo

	CreateErr     error
	GetErr        error
	UpdateErr     error
	DeleteErr     error
	ListErr       error
	TemplatesErr  error
	TombstonesErr error

	// Deleted records ids passed to DeleteTodo, in call order.
	Deleted []string
}

// NewTodoRepository returns a repository seeded with the given records.
func NewTodoRepository(seed ...application.Todo) *TodoRepository {
	repo := &TodoRepository{todos: make(map[string]application.Todo, len(seed))}
	for _, todo := range seed {
		repo.todos[todo.ID] = todo
	}
	return repo
}

// All returns every stored record, tombstones included, ordered by id.
func (r *TodoRepository) All() []application.Todo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]application.Todo, 0, len(r.todos))
	for _, todo := range r.todos {
		out = append(out, todo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *TodoRepository) CreateTodo(ctx context.Context, todo application.Todo) (application.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return application.Todo{}, r.CreateErr
	}
	if _, ok := r.todos[todo.ID]; ok {
		return application.Todo{}, application.ErrAlreadyExists
	}
	r.todos[todo.ID] = todo
	return todo, nil
}

func (r *TodoRepository) GetTodo(ctx context.Context, id string) (application.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return application.Todo{}, r.GetErr
	}
	todo, ok := r.todos[id]
	if !ok {
		return application.Todo{}, application.ErrNotFound
	}
	return todo, nil
}

func (r *TodoRepository) UpdateTodo(ctx context.Context, todo application.Todo) (application.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return application.Todo{}, r.UpdateErr
	}
	if _, ok := r.todos[todo.ID]; !ok {
		return application.Todo{}, application.ErrNotFound
	}
	r.todos[todo.ID] = todo
	return todo, nil
}

func (r *TodoRepository) DeleteTodo(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	if _, ok := r.todos[id]; !ok {
		return application.ErrNotFound
	}
	delete(r.todos, id)
	r.Deleted = append(r.Deleted, id)
	return nil
}

func (r *TodoRepository) ListTodos(ctx context.Context, filter application.TodoRepositoryFilter) ([]application.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var out []application.Todo
	for _, todo := range r.todos {
		switch {
		case todo.IsDeleted:
		case filter.DueFrom != nil && todo.DueDate.Before(*filter.DueFrom):
		case filter.DueTo != nil && todo.DueDate.After(*filter.DueTo):
		case filter.Status != "" && todo.Status != filter.Status:
		case filter.SeriesID != "" && todo.SeriesID != filter.SeriesID:
		default:
			out = append(out, todo)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DueDate != b.DueDate {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *TodoRepository) ListRecurringTemplates(ctx context.Context) ([]application.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.TemplatesErr != nil {
		return nil, r.TemplatesErr
	}
	var out []application.Todo
	for _, todo := range r.todos {
		if todo.IsTemplate() {
			out = append(out, todo)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TodoRepository) ListTombstones(ctx context.Context, from, to civil.Date) ([]application.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.TombstonesErr != nil {
		return nil, r.TombstonesErr
	}
	var out []application.Todo
	for _, todo := range r.todos {
		if todo.IsDeleted && !todo.DueDate.Before(from) && !todo.DueDate.After(to) {
			out = append(out, todo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ application.TodoRepository = (*TodoRepository)(nil)
