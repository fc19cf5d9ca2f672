package application

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"github.com/example/bsmanager/internal/recurrence"
)

// ListView assembles the occurrences of a window: stored records merged with
// projected template occurrences, ordered by date and filtered by status.
func (s *TodoService) ListView(ctx context.Context, params ViewParams) (view View, err error) {
	if s == nil {
		err = fmt.Errorf("TodoService is nil")
		return
	}
	if s.todos == nil {
		err = fmt.Errorf("todo repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListView", "period", params.Period, "status_filter", params.Status)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list view", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if len(view.SkippedTemplateIDs) > 0 {
			logger.WarnContext(ctx, "templates with invalid repeat rules skipped", "template_ids", view.SkippedTemplateIDs)
		}
		if len(view.AmbiguousTitles) > 0 {
			logger.WarnContext(ctx, "title matched several templates", "titles", view.AmbiguousTitles)
		}
		logger.With("result_count", len(view.Occurrences)).DebugContext(ctx, "view listed")
	}()

	if vErr := validateViewParams(params); vErr.HasErrors() {
		err = vErr
		return
	}

	view.Start, view.End = s.viewBounds(params)
	if view.Start != nil && view.End != nil {
		if (recurrence.Window{Start: *view.Start, End: *view.End}).Validate() != nil {
			err = ErrInvalidDateRange
			return
		}
	}

	var records []Todo
	records, err = s.todos.ListTodos(ctx, TodoRepositoryFilter{DueFrom: view.Start, DueTo: view.End})
	if err != nil {
		err = mapTodoRepoError(err)
		return
	}

	if view.Start == nil || view.End == nil {
		for _, record := range records {
			view.Occurrences = append(view.Occurrences, RealOccurrence{Todo: record})
		}
	} else {
		window := recurrence.Window{Start: *view.Start, End: *view.End}

		var templates, tombstones []Todo
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var listErr error
			templates, listErr = s.todos.ListRecurringTemplates(gctx)
			return listErr
		})
		g.Go(func() error {
			var listErr error
			tombstones, listErr = s.todos.ListTombstones(gctx, window.Start, window.End)
			return listErr
		})
		if err = g.Wait(); err != nil {
			err = mapTodoRepoError(err)
			return
		}

		var result recurrence.Result
		view.Occurrences, result, err = mergeOccurrences(records, templates, tombstones, window)
		if err != nil {
			return
		}
		view.SkippedTemplateIDs = result.Skipped
		view.AmbiguousTitles = result.AmbiguousTitles
	}

	sortOccurrences(view.Occurrences)
	view.Occurrences = filterByStatus(view.Occurrences, params.Status)
	return
}

// GroupByDate splits ordered occurrences into consecutive per-date groups.
func GroupByDate(occurrences []Occurrence) []DateGroup {
	var groups []DateGroup
	for _, occurrence := range occurrences {
		date := occurrence.Date()
		if n := len(groups); n > 0 && groups[n-1].Date == date {
			groups[n-1].Occurrences = append(groups[n-1].Occurrences, occurrence)
			continue
		}
		groups = append(groups, DateGroup{Date: date, Occurrences: []Occurrence{occurrence}})
	}
	return groups
}

// PeriodRange returns the closed date range of a preset around reference.
func PeriodRange(period ListPeriod, reference civil.Date) (civil.Date, civil.Date) {
	switch period {
	case ListPeriodWeek:
		start := reference.AddDays(1 - recurrence.ISOWeekday(reference))
		return start, start.AddDays(6)
	case ListPeriodMonth:
		start := civil.Date{Year: reference.Year, Month: reference.Month, Day: 1}
		end := civil.Date{Year: reference.Year, Month: reference.Month, Day: recurrence.DaysInMonth(reference.Year, reference.Month)}
		return start, end
	default:
		return reference, reference
	}
}

func (s *TodoService) viewBounds(params ViewParams) (*civil.Date, *civil.Date) {
	start, end := params.Start, params.End
	if start != nil || end != nil || params.Period == ListPeriodNone {
		return start, end
	}

	reference := params.Reference
	if !reference.IsValid() {
		reference = s.Today()
	}
	from, to := PeriodRange(params.Period, reference)
	return &from, &to
}

// mergeOccurrences combines window records with projected occurrences.
// Non-recurring records are kept as they are; a template record is kept
// unless its own anchor is overridden or deleted.
func mergeOccurrences(records, templates, tombstones []Todo, window recurrence.Window) ([]Occurrence, recurrence.Result, error) {
	overrides := make([]recurrence.Marker, 0, len(records))
	for _, record := range records {
		if !record.IsTemplate() {
			overrides = append(overrides, toMarker(record))
		}
	}
	deleted := make([]recurrence.Marker, 0, len(tombstones))
	for _, tombstone := range tombstones {
		deleted = append(deleted, toMarker(tombstone))
	}
	suppressions := recurrence.NewSuppressions(overrides, deleted)

	byID := make(map[string]Todo, len(templates))
	engineTemplates := make([]recurrence.Template, 0, len(templates))
	for _, template := range templates {
		byID[template.ID] = template
		engineTemplates = append(engineTemplates, toEngineTemplate(template))
	}

	result, err := recurrence.Project(engineTemplates, window, suppressions)
	if err != nil {
		return nil, recurrence.Result{}, ErrInvalidDateRange
	}

	occurrences := make([]Occurrence, 0, len(records)+len(result.Occurrences))
	for _, record := range records {
		if record.IsTemplate() {
			anchor := toEngineTemplate(record)
			if suppressions.Overridden(anchor, record.DueDate) || suppressions.Deleted(anchor, record.DueDate) {
				continue
			}
		}
		occurrences = append(occurrences, RealOccurrence{Todo: record})
	}
	for _, projected := range result.Occurrences {
		template, ok := byID[projected.TemplateID]
		if !ok {
			continue
		}
		virtual := template
		virtual.ID = projected.ID
		virtual.DueDate = projected.Date
		occurrences = append(occurrences, VirtualOccurrence{Todo: virtual, OriginalID: template.ID})
	}
	return occurrences, result, nil
}

func toMarker(todo Todo) recurrence.Marker {
	return recurrence.Marker{SeriesID: todo.SeriesID, Title: todo.Title, Date: todo.DueDate}
}

func toEngineTemplate(todo Todo) recurrence.Template {
	return recurrence.Template{
		ID:       todo.ID,
		SeriesID: todo.SeriesID,
		Title:    todo.Title,
		Anchor:   todo.DueDate,
		Rule:     toRule(todo.Repeat),
	}
}

// sortOccurrences orders by date ascending, newest first within a date.
func sortOccurrences(occurrences []Occurrence) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		a, b := occurrences[i].Record(), occurrences[j].Record()
		if a.DueDate != b.DueDate {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func filterByStatus(occurrences []Occurrence, filter StatusFilter) []Occurrence {
	if filter == "" || filter == StatusFilterAll {
		return occurrences
	}
	filtered := occurrences[:0]
	for _, occurrence := range occurrences {
		if string(occurrence.Record().Status) == string(filter) {
			filtered = append(filtered, occurrence)
		}
	}
	return filtered
}

func validateViewParams(params ViewParams) *ValidationError {
	vErr := &ValidationError{}

	switch params.Period {
	case ListPeriodNone, ListPeriodDay, ListPeriodWeek, ListPeriodMonth:
	default:
		vErr.add("view", msgPeriodInvalid)
	}
	switch params.Status {
	case "", StatusFilterAll, StatusFilterIncomplete, StatusFilterComplete:
	default:
		vErr.add("status", msgStatusFilter)
	}

	return vErr
}
