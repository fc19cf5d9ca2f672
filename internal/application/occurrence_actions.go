package application

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
)

const msgDateNotOccurrence = "반복 일정에 해당하지 않는 날짜입니다."

// SetOccurrenceStatus changes the status of one occurrence. Occurrences of a
// recurring series are materialized as a standalone override for their date
// so the template itself is never modified; plain records change in place.
func (s *TodoService) SetOccurrenceStatus(ctx context.Context, params SetOccurrenceStatusParams) (todo Todo, err error) {
	if s == nil {
		err = fmt.Errorf("TodoService is nil")
		return
	}
	if s.todos == nil {
		err = fmt.Errorf("todo repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetOccurrenceStatus", "todo_id", params.TodoID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set occurrence status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_id", todo.ID, "status", todo.Status).InfoContext(ctx, "occurrence status changed")
	}()

	if params.Status != "" && !params.Status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", msgStatusInvalid)
		err = vErr
		return
	}

	var target Todo
	var projected *civil.Date
	target, projected, err = s.resolve(ctx, params.TodoID)
	if err != nil {
		return
	}

	if !target.IsTemplate() {
		target.Status = nextStatus(target.Status, params.Status)
		target.UpdatedAt = s.now()
		todo, err = s.todos.UpdateTodo(ctx, target)
		err = mapTodoRepoError(err)
		return
	}

	date := target.DueDate
	switch {
	case projected != nil:
		date = *projected
	case params.Date != nil:
		date = *params.Date
	}
	if !isOccurrenceDate(target, date) {
		vErr := &ValidationError{}
		vErr.add("date", msgDateNotOccurrence)
		err = vErr
		return
	}

	var override *Todo
	override, err = s.findOverride(ctx, target, date)
	if err != nil {
		return
	}

	if override != nil {
		updated := *override
		updated.Status = nextStatus(updated.Status, params.Status)
		updated.UpdatedAt = s.now()
		todo, err = s.todos.UpdateTodo(ctx, updated)
		err = mapTodoRepoError(err)
		return
	}

	created := Todo{
		ID:        s.idGenerator(),
		SeriesID:  seriesOf(target),
		Title:     target.Title,
		Content:   target.Content,
		DueDate:   date,
		Status:    nextStatus(target.Status, params.Status),
		Repeat:    Repeat{Type: RepeatNone},
		CreatedAt: s.now(),
	}
	created.UpdatedAt = created.CreatedAt
	todo, err = s.todos.CreateTodo(ctx, created)
	err = mapTodoRepoError(err)
	return
}

// DeleteOccurrence removes one occurrence or a whole series.
//
// For a template or one of its virtual occurrences, single scope writes a
// tombstone for the date and series scope deletes the template. For an
// override, single scope replaces it with a tombstone and series scope
// deletes both the override and its parent template. Plain records are
// deleted whatever the scope.
func (s *TodoService) DeleteOccurrence(ctx context.Context, params DeleteOccurrenceParams) (err error) {
	if s == nil {
		return fmt.Errorf("TodoService is nil")
	}
	if s.todos == nil {
		return fmt.Errorf("todo repository not configured")
	}

	scope := params.Scope
	if scope == "" {
		scope = DeleteScopeSingle
	}

	logger := s.loggerWith(ctx, "DeleteOccurrence", "todo_id", params.TodoID, "scope", scope)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete occurrence", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "occurrence deleted")
	}()

	if scope != DeleteScopeSingle && scope != DeleteScopeSeries {
		vErr := &ValidationError{}
		vErr.add("scope", msgScopeInvalid)
		return vErr
	}

	target, projected, err := s.resolve(ctx, params.TodoID)
	if err != nil {
		return err
	}

	if target.IsTemplate() {
		if scope == DeleteScopeSeries {
			return mapTodoRepoError(s.todos.DeleteTodo(ctx, target.ID))
		}
		date := target.DueDate
		if projected != nil {
			date = *projected
		}
		if !isOccurrenceDate(target, date) {
			vErr := &ValidationError{}
			vErr.add("date", msgDateNotOccurrence)
			return vErr
		}
		return s.createTombstone(ctx, target, seriesOf(target), date)
	}

	parent, err := s.findParent(ctx, target)
	if err != nil {
		return err
	}
	if parent == nil {
		return mapTodoRepoError(s.todos.DeleteTodo(ctx, target.ID))
	}

	logger = logger.With("parent_id", parent.ID)
	if scope == DeleteScopeSeries {
		if err = s.todos.DeleteTodo(ctx, parent.ID); err != nil {
			return mapTodoRepoError(err)
		}
		return mapTodoRepoError(s.todos.DeleteTodo(ctx, target.ID))
	}

	if err = s.todos.DeleteTodo(ctx, target.ID); err != nil {
		return mapTodoRepoError(err)
	}
	return s.createTombstone(ctx, target, seriesOf(*parent), target.DueDate)
}

func (s *TodoService) createTombstone(ctx context.Context, source Todo, seriesID string, date civil.Date) error {
	tombstone := Todo{
		ID:        s.idGenerator(),
		SeriesID:  seriesID,
		Title:     source.Title,
		Content:   source.Content,
		DueDate:   date,
		Status:    StatusIncomplete,
		Repeat:    Repeat{Type: RepeatNone},
		IsDeleted: true,
		CreatedAt: s.now(),
	}
	tombstone.UpdatedAt = tombstone.CreatedAt
	_, err := s.todos.CreateTodo(ctx, tombstone)
	return mapTodoRepoError(err)
}

// findOverride returns the standalone record standing in for the template's
// occurrence on date. Records of the same series win over title matches.
func (s *TodoService) findOverride(ctx context.Context, template Todo, date civil.Date) (*Todo, error) {
	candidates, err := s.todos.ListTodos(ctx, TodoRepositoryFilter{DueFrom: &date, DueTo: &date})
	if err != nil {
		return nil, mapTodoRepoError(err)
	}

	series := seriesOf(template)
	var byTitle *Todo
	for i := range candidates {
		candidate := candidates[i]
		if candidate.IsTemplate() || candidate.IsDeleted {
			continue
		}
		if candidate.SeriesID == series {
			return &candidate, nil
		}
		if byTitle == nil && candidate.SeriesID == "" && candidate.Title == template.Title {
			byTitle = &candidate
		}
	}
	return byTitle, nil
}

// findParent returns the template a standalone record belongs to, if any.
func (s *TodoService) findParent(ctx context.Context, record Todo) (*Todo, error) {
	templates, err := s.todos.ListRecurringTemplates(ctx)
	if err != nil {
		return nil, mapTodoRepoError(err)
	}

	if record.SeriesID != "" {
		for i := range templates {
			if templates[i].ID != record.ID && seriesOf(templates[i]) == record.SeriesID {
				return &templates[i], nil
			}
		}
		return nil, nil
	}
	for i := range templates {
		if templates[i].ID != record.ID && templates[i].Title == record.Title {
			return &templates[i], nil
		}
	}
	return nil, nil
}

func isOccurrenceDate(template Todo, date civil.Date) bool {
	if date == template.DueDate {
		return true
	}
	return date.After(template.DueDate) && toRule(template.Repeat).Matches(date)
}

func seriesOf(todo Todo) string {
	if todo.SeriesID != "" {
		return todo.SeriesID
	}
	return todo.ID
}

func nextStatus(current, requested Status) Status {
	if requested != "" {
		return requested
	}
	return current.Toggle()
}
