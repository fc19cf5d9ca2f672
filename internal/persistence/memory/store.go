// Package memory implements the to-do data source in process memory, with an
// optional JSON snapshot file for persistence across restarts.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/persistence"
)

// Store keeps to-dos in a map guarded by a read/write mutex.
type Store struct {
	mu    sync.RWMutex
	todos map[string]persistence.Todo

	// snapshotPath, when set, receives the full data set after every write.
	snapshotPath string
}

// New returns an empty store that never touches the file system.
func New() *Store {
	return &Store{todos: make(map[string]persistence.Todo)}
}

// Open returns a store backed by the snapshot file at path. A missing file
// yields an empty store. The directory is created here and the file on the
// first write.
func Open(path string) (*Store, error) {
	s := New()
	s.snapshotPath = path
	if path == "" {
		return s, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("memory: snapshot directory: %w", err)
	}

	todos, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	for _, todo := range todos {
		if _, ok := s.todos[todo.ID]; ok {
			return nil, fmt.Errorf("memory: snapshot %s: %w: %s", path, persistence.ErrDuplicate, todo.ID)
		}
		s.todos[todo.ID] = cloneTodo(todo)
	}
	return s, nil
}

// Close is a no-op; snapshots are written synchronously.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored rows, tombstones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos)
}

// CreateTodo stores a new to-do.
func (s *Store) CreateTodo(ctx context.Context, todo persistence.Todo) error {
	if todo.ID == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[todo.ID]; ok {
		return fmt.Errorf("memory: todo %s: %w", todo.ID, persistence.ErrDuplicate)
	}
	if todo.RepeatType == "" {
		todo.RepeatType = persistence.RepeatNone
	}

	return s.commitLocked(todo.ID, &todo)
}

// UpdateTodo replaces an existing to-do, keeping its creation time.
func (s *Store) UpdateTodo(ctx context.Context, todo persistence.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.todos[todo.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if todo.RepeatType == "" {
		todo.RepeatType = persistence.RepeatNone
	}
	todo.CreatedAt = existing.CreatedAt

	return s.commitLocked(todo.ID, &todo)
}

// GetTodo retrieves a to-do by ID.
func (s *Store) GetTodo(ctx context.Context, id string) (persistence.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todo, ok := s.todos[id]
	if !ok {
		return persistence.Todo{}, persistence.ErrNotFound
	}
	return cloneTodo(todo), nil
}

// ListTodos returns rows matching the filter ordered by due date.
func (s *Store) ListTodos(ctx context.Context, filter persistence.TodoFilter) ([]persistence.Todo, error) {
	return s.collect(filter.Matches, persistence.SortByDueDate), nil
}

// ListRecurringTemplates returns live templates, newest first.
func (s *Store) ListRecurringTemplates(ctx context.Context) ([]persistence.Todo, error) {
	return s.collect(persistence.Todo.IsTemplate, persistence.SortByCreatedDesc), nil
}

// ListTombstones returns deletion markers dated within [from, to].
func (s *Store) ListTombstones(ctx context.Context, from, to civil.Date) ([]persistence.Todo, error) {
	inRange := func(todo persistence.Todo) bool {
		return todo.IsTombstone() && !todo.DueDate.Before(from) && !todo.DueDate.After(to)
	}
	return s.collect(inRange, persistence.SortByDueDate), nil
}

// DeleteTodo removes a to-do by ID.
func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return persistence.ErrNotFound
	}
	return s.commitLocked(id, nil)
}

func (s *Store) collect(keep func(persistence.Todo) bool, order func([]persistence.Todo)) []persistence.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Todo, 0, len(s.todos))
	for _, todo := range s.todos {
		if keep(todo) {
			out = append(out, cloneTodo(todo))
		}
	}
	order(out)
	return out
}

// commitLocked applies a write to id: todo replaces the row, nil removes it.
// The snapshot of the resulting data set is written first; the map only
// changes once it is on disk.
func (s *Store) commitLocked(id string, todo *persistence.Todo) error {
	if s.snapshotPath != "" {
		todos := make([]persistence.Todo, 0, len(s.todos)+1)
		for key, existing := range s.todos {
			if key != id {
				todos = append(todos, existing)
			}
		}
		if todo != nil {
			todos = append(todos, *todo)
		}
		persistence.SortByDueDate(todos)
		if err := writeSnapshot(s.snapshotPath, todos); err != nil {
			return err
		}
	}

	if todo == nil {
		delete(s.todos, id)
	} else {
		s.todos[id] = cloneTodo(*todo)
	}
	return nil
}

func cloneTodo(todo persistence.Todo) persistence.Todo {
	if todo.Content != nil {
		content := *todo.Content
		todo.Content = &content
	}
	if todo.RepeatDay != nil {
		day := *todo.RepeatDay
		todo.RepeatDay = &day
	}
	return todo
}

var _ persistence.TodoRepository = (*Store)(nil)
