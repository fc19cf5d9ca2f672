package application

import (
	"time"

	"cloud.google.com/go/civil"
)

// Status is the completion state of a to-do.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	return s == StatusIncomplete || s == StatusComplete
}

// Toggle returns the opposite status.
func (s Status) Toggle() Status {
	if s == StatusComplete {
		return StatusIncomplete
	}
	return StatusComplete
}

// RepeatType selects how a to-do recurs.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
)

// LastDayOfMonth is the monthly repeat day meaning the last calendar day.
const LastDayOfMonth = -1

// Repeat describes the recurrence of a to-do. Day is the ISO weekday
// (1 Monday .. 7 Sunday) for weekly rules and the day of month (1..31 or
// LastDayOfMonth) for monthly rules.
type Repeat struct {
	Type RepeatType
	Day  int
}

// Recurs reports whether the repeat rule produces occurrences.
func (r Repeat) Recurs() bool {
	return r.Type == RepeatWeekly || r.Type == RepeatMonthly
}

// Todo represents a stored to-do record.
type Todo struct {
	ID        string
	SeriesID  string
	Title     string
	Content   *string
	DueDate   civil.Date
	Status    Status
	Repeat    Repeat
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTemplate reports whether the record is a live recurring template.
func (t Todo) IsTemplate() bool {
	return !t.IsDeleted && t.Repeat.Recurs()
}

// Occurrence is one entry of a rendered view: either a stored record or a
// projected instance of a recurring template. The set of implementations is
// closed; consumers type-switch on RealOccurrence and VirtualOccurrence.
type Occurrence interface {
	// Record returns the to-do shown for the occurrence.
	Record() Todo
	// Date returns the calendar date the occurrence falls on.
	Date() civil.Date
	isOccurrence()
}

// RealOccurrence wraps a stored record.
type RealOccurrence struct {
	Todo Todo
}

func (o RealOccurrence) Record() Todo     { return o.Todo }
func (o RealOccurrence) Date() civil.Date { return o.Todo.DueDate }
func (RealOccurrence) isOccurrence()      {}

// VirtualOccurrence is a projected instance of a template. Todo carries the
// template's fields with the synthetic ID and the projected due date.
type VirtualOccurrence struct {
	Todo       Todo
	OriginalID string
}

func (o VirtualOccurrence) Record() Todo     { return o.Todo }
func (o VirtualOccurrence) Date() civil.Date { return o.Todo.DueDate }
func (VirtualOccurrence) isOccurrence()      {}

// TodoInput captures caller provided to-do fields.
type TodoInput struct {
	Title   string
	Content *string
	DueDate civil.Date
	Status  Status
	Repeat  Repeat
}

// CreateTodoParams wraps the data required to create a to-do.
type CreateTodoParams struct {
	Input TodoInput
}

// UpdateTodoParams wraps the data required to update a to-do.
type UpdateTodoParams struct {
	TodoID string
	Input  TodoInput
}

// ListPeriod identifies the window preset requested for a view.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains the view to the reference date.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains the view to the Monday-start week containing the reference date.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains the view to the month containing the reference date.
	ListPeriodMonth ListPeriod = "month"
)

// StatusFilter narrows a view by completion state.
type StatusFilter string

const (
	StatusFilterAll        StatusFilter = "all"
	StatusFilterIncomplete StatusFilter = "incomplete"
	StatusFilterComplete   StatusFilter = "complete"
)

// ViewParams wraps the data required to assemble a view.
//
// Explicit bounds take precedence over the period preset. When only one bound
// is known the view is a plain search and templates are not projected.
type ViewParams struct {
	Period    ListPeriod
	Reference civil.Date
	Start     *civil.Date
	End       *civil.Date
	Status    StatusFilter
}

// View is the assembled list of occurrences for a window.
type View struct {
	Start       *civil.Date
	End         *civil.Date
	Occurrences []Occurrence
	// SkippedTemplateIDs lists templates whose repeat rule is invalid.
	SkippedTemplateIDs []string
	// AmbiguousTitles lists titles matched by title only while shared by several templates.
	AmbiguousTitles []string
}

// DateGroup is the set of occurrences falling on one date.
type DateGroup struct {
	Date        civil.Date
	Occurrences []Occurrence
}

// SetOccurrenceStatusParams wraps the data required to change an occurrence's status.
//
// TodoID may be a stored id or a synthetic occurrence id. Date selects the
// occurrence of a template when TodoID names the template itself. An empty
// Status toggles the current one.
type SetOccurrenceStatusParams struct {
	TodoID string
	Date   *civil.Date
	Status Status
}

// DeleteScope selects how much of a series a delete removes.
type DeleteScope string

const (
	DeleteScopeSingle DeleteScope = "single"
	DeleteScopeSeries DeleteScope = "series"
)

// DeleteOccurrenceParams wraps the data required to delete an occurrence.
type DeleteOccurrenceParams struct {
	TodoID string
	Scope  DeleteScope
}
