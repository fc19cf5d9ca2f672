package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/persistence"
	"github.com/example/bsmanager/internal/recurrence"
)

// TodoRepositoryFilter narrows repository listings. Nil bounds are open.
type TodoRepositoryFilter struct {
	DueFrom  *civil.Date
	DueTo    *civil.Date
	Status   Status
	SeriesID string
}

// TodoRepository captures the persistence operations needed by the service.
// Listings never include tombstones except ListTombstones.
type TodoRepository interface {
	CreateTodo(ctx context.Context, todo Todo) (Todo, error)
	GetTodo(ctx context.Context, id string) (Todo, error)
	UpdateTodo(ctx context.Context, todo Todo) (Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	ListTodos(ctx context.Context, filter TodoRepositoryFilter) ([]Todo, error)
	ListRecurringTemplates(ctx context.Context) ([]Todo, error)
	ListTombstones(ctx context.Context, from, to civil.Date) ([]Todo, error)
}

// TodoService orchestrates validation, projection, and persistence for to-dos.
type TodoService struct {
	todos       TodoRepository
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewTodoService constructs a to-do service with the provided dependencies.
func NewTodoService(todos TodoRepository, idGenerator func() string, now func() time.Time) *TodoService {
	return NewTodoServiceWithLogger(todos, idGenerator, now, nil, nil)
}

// NewTodoServiceWithLogger constructs a to-do service with a specified logger.
// The location decides which calendar date "today" is; nil means UTC.
func NewTodoServiceWithLogger(todos TodoRepository, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *TodoService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &TodoService{
		todos:       todos,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

func (s *TodoService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TodoService", operation, attrs...)
}

// Today returns the current calendar date in the service's location.
func (s *TodoService) Today() civil.Date {
	return civil.DateOf(s.now().In(s.location))
}

// CreateTodo validates input and persists a new to-do.
// Recurring to-dos start their own series.
func (s *TodoService) CreateTodo(ctx context.Context, params CreateTodoParams) (todo Todo, err error) {
	if s == nil {
		err = fmt.Errorf("TodoService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateTodo")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create todo", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("todo_id", todo.ID, "repeat_type", todo.Repeat.Type).InfoContext(ctx, "todo created")
	}()

	input := normalizeInput(params.Input)
	if vErr := validateTodoInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.todos == nil {
		err = fmt.Errorf("todo repository not configured")
		return
	}

	todo = Todo{
		ID:        s.idGenerator(),
		Title:     input.Title,
		Content:   input.Content,
		DueDate:   input.DueDate,
		Status:    input.Status,
		Repeat:    input.Repeat,
		CreatedAt: s.now(),
	}
	todo.UpdatedAt = todo.CreatedAt
	if todo.Repeat.Recurs() {
		todo.SeriesID = todo.ID
	}

	todo, err = s.todos.CreateTodo(ctx, todo)
	if err != nil {
		err = mapTodoRepoError(err)
		return
	}
	return
}

// GetTodo returns a stored to-do.
func (s *TodoService) GetTodo(ctx context.Context, todoID string) (Todo, error) {
	if s == nil {
		return Todo{}, fmt.Errorf("TodoService is nil")
	}
	if s.todos == nil {
		return Todo{}, fmt.Errorf("todo repository not configured")
	}
	todo, err := s.todos.GetTodo(ctx, todoID)
	if err != nil {
		return Todo{}, mapTodoRepoError(err)
	}
	if todo.IsDeleted {
		return Todo{}, ErrNotFound
	}
	return todo, nil
}

// UpdateTodo validates input and replaces the editable fields of a to-do.
// A virtual occurrence id edits its template.
func (s *TodoService) UpdateTodo(ctx context.Context, params UpdateTodoParams) (todo Todo, err error) {
	if s == nil {
		err = fmt.Errorf("TodoService is nil")
		return
	}
	if s.todos == nil {
		err = fmt.Errorf("todo repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateTodo", "todo_id", params.TodoID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update todo", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "todo updated")
	}()

	var existing Todo
	existing, _, err = s.resolve(ctx, params.TodoID)
	if err != nil {
		return
	}

	input := normalizeInput(params.Input)
	if vErr := validateTodoInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Title = input.Title
	updated.Content = input.Content
	updated.DueDate = input.DueDate
	updated.Status = input.Status
	updated.Repeat = input.Repeat
	updated.UpdatedAt = s.now()
	if updated.Repeat.Recurs() && updated.SeriesID == "" {
		updated.SeriesID = updated.ID
	}

	todo, err = s.todos.UpdateTodo(ctx, updated)
	if err != nil {
		err = mapTodoRepoError(err)
		return
	}
	return
}

// DeleteTodo removes a stored to-do, or a template when given a virtual id.
func (s *TodoService) DeleteTodo(ctx context.Context, todoID string) error {
	if s == nil {
		return fmt.Errorf("TodoService is nil")
	}
	if s.todos == nil {
		return fmt.Errorf("todo repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteTodo", "todo_id", todoID)

	target, _, err := s.resolve(ctx, todoID)
	if err == nil {
		err = mapTodoRepoError(s.todos.DeleteTodo(ctx, target.ID))
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete todo", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "todo deleted")
	return nil
}

// ListRecurring returns every live template, newest first.
func (s *TodoService) ListRecurring(ctx context.Context) (todos []Todo, err error) {
	if s == nil {
		err = fmt.Errorf("TodoService is nil")
		return
	}
	if s.todos == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRecurring")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list recurring todos", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(todos)).DebugContext(ctx, "recurring todos listed")
	}()

	todos, err = s.todos.ListRecurringTemplates(ctx)
	if err != nil {
		err = mapTodoRepoError(err)
	}
	return
}

// resolve loads the stored record behind an id. For a synthetic occurrence id
// it returns the template and the occurrence date; otherwise the date is nil.
func (s *TodoService) resolve(ctx context.Context, id string) (Todo, *civil.Date, error) {
	todo, err := s.todos.GetTodo(ctx, id)
	if err == nil {
		if todo.IsDeleted {
			return Todo{}, nil, ErrNotFound
		}
		return todo, nil, nil
	}
	if err = mapTodoRepoError(err); !errors.Is(err, ErrNotFound) {
		return Todo{}, nil, err
	}

	templateID, date, ok := recurrence.ParseOccurrenceID(id)
	if !ok {
		return Todo{}, nil, ErrNotFound
	}
	template, err := s.todos.GetTodo(ctx, templateID)
	if err != nil {
		return Todo{}, nil, mapTodoRepoError(err)
	}
	if !template.IsTemplate() {
		return Todo{}, nil, ErrNotFound
	}
	return template, &date, nil
}

func normalizeInput(input TodoInput) TodoInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Content = normalizeOptionalString(input.Content)
	if input.Status == "" {
		input.Status = StatusIncomplete
	}
	if input.Repeat.Type == "" {
		input.Repeat.Type = RepeatNone
	}
	if input.Repeat.Type == RepeatNone {
		input.Repeat.Day = 0
	}
	return input
}

func validateTodoInput(input TodoInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Title == "" {
		vErr.add("title", msgTitleRequired)
	}
	if !input.DueDate.IsValid() {
		vErr.add("dueDate", msgDueDateRequired)
	}
	if !input.Status.Valid() {
		vErr.add("status", msgStatusInvalid)
	}

	vErr.merge(validateRepeat(input.Repeat))

	return vErr
}

func validateRepeat(repeat Repeat) *ValidationError {
	vErr := &ValidationError{}
	switch repeat.Type {
	case RepeatNone:
	case RepeatWeekly, RepeatMonthly:
		if err := toRule(repeat).Validate(); err != nil {
			vErr.add("repeatDay", msgRepeatDayInvalid)
		}
	default:
		vErr.add("repeatType", msgRepeatTypeInvalid)
	}
	return vErr
}

func toRule(repeat Repeat) recurrence.Rule {
	switch repeat.Type {
	case RepeatWeekly:
		return recurrence.Weekly(repeat.Day)
	case RepeatMonthly:
		return recurrence.Monthly(repeat.Day)
	default:
		return recurrence.Rule{}
	}
}

func mapTodoRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fmt.Errorf("todo violates storage constraints: %w", err)
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
