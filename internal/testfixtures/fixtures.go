package testfixtures

import (
	"strconv"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/application"
	"github.com/example/bsmanager/internal/persistence"
)

var todoCounter uint64

var referenceTime = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar date of ReferenceTime, a Monday.
func ReferenceDate() civil.Date {
	return civil.DateOf(referenceTime)
}

// Date is shorthand for a civil date literal.
func Date(year int, month time.Month, day int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: day}
}

// DatePtr returns a pointer to the given date.
func DatePtr(year int, month time.Month, day int) *civil.Date {
	d := Date(year, month, day)
	return &d
}

// TodoFixture represents a deterministic to-do record that can be
// materialised for application or persistence tests.
type TodoFixture struct {
	ID         string
	SeriesID   string
	Title      string
	Content    *string
	DueDate    civil.Date
	Status     application.Status
	RepeatType application.RepeatType
	RepeatDay  int
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TodoOption configures the generated to-do fixture.
type TodoOption func(*TodoFixture)

// NewTodoFixture returns a deterministic incomplete one-off to-do due on the
// reference date.
func NewTodoFixture(opts ...TodoOption) TodoFixture {
	n := atomic.AddUint64(&todoCounter, 1)
	fixture := TodoFixture{
		ID:         "todo-fixture-" + strconv.FormatUint(n, 10),
		Title:      "Todo " + strconv.FormatUint(n, 10),
		DueDate:    ReferenceDate(),
		Status:     application.StatusIncomplete,
		RepeatType: application.RepeatNone,
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithTodoID(id string) TodoOption {
	return func(f *TodoFixture) { f.ID = id }
}

func WithTodoTitle(title string) TodoOption {
	return func(f *TodoFixture) { f.Title = title }
}

func WithTodoContent(content string) TodoOption {
	return func(f *TodoFixture) { f.Content = &content }
}

func WithTodoDueDate(d civil.Date) TodoOption {
	return func(f *TodoFixture) { f.DueDate = d }
}

func WithTodoStatus(status application.Status) TodoOption {
	return func(f *TodoFixture) { f.Status = status }
}

// WithTodoSeriesID links the record to a series.
func WithTodoSeriesID(seriesID string) TodoOption {
	return func(f *TodoFixture) { f.SeriesID = seriesID }
}

// WithTodoWeekly turns the fixture into a weekly template on the ISO weekday.
// The template starts its own series unless a series is already set.
func WithTodoWeekly(isoWeekday int) TodoOption {
	return func(f *TodoFixture) {
		f.RepeatType = application.RepeatWeekly
		f.RepeatDay = isoWeekday
	}
}

// WithTodoMonthly turns the fixture into a monthly template.
func WithTodoMonthly(day int) TodoOption {
	return func(f *TodoFixture) {
		f.RepeatType = application.RepeatMonthly
		f.RepeatDay = day
	}
}

// WithTodoDeleted marks the fixture as a tombstone.
func WithTodoDeleted() TodoOption {
	return func(f *TodoFixture) { f.IsDeleted = true }
}

// WithTodoCreatedAt sets both timestamps.
func WithTodoCreatedAt(t time.Time) TodoOption {
	return func(f *TodoFixture) {
		f.CreatedAt = t
		f.UpdatedAt = t
	}
}

func (f TodoFixture) seriesID() string {
	if f.SeriesID == "" && f.RepeatType != application.RepeatNone {
		return f.ID
	}
	return f.SeriesID
}

// Application returns the fixture as an application to-do.
func (f TodoFixture) Application() application.Todo {
	return application.Todo{
		ID:        f.ID,
		SeriesID:  f.seriesID(),
		Title:     f.Title,
		Content:   cloneString(f.Content),
		DueDate:   f.DueDate,
		Status:    f.Status,
		Repeat:    application.Repeat{Type: f.RepeatType, Day: f.RepeatDay},
		IsDeleted: f.IsDeleted,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a stored row.
func (f TodoFixture) Persistence() persistence.Todo {
	var day *int
	if f.RepeatType != application.RepeatNone {
		d := f.RepeatDay
		day = &d
	}
	return persistence.Todo{
		ID:         f.ID,
		SeriesID:   f.seriesID(),
		Title:      f.Title,
		Content:    cloneString(f.Content),
		DueDate:    f.DueDate,
		Status:     string(f.Status),
		RepeatType: string(f.RepeatType),
		RepeatDay:  day,
		IsDeleted:  f.IsDeleted,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Input returns the caller supplied fields of the fixture.
func (f TodoFixture) Input() application.TodoInput {
	return application.TodoInput{
		Title:   f.Title,
		Content: cloneString(f.Content),
		DueDate: f.DueDate,
		Status:  f.Status,
		Repeat:  application.Repeat{Type: f.RepeatType, Day: f.RepeatDay},
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
