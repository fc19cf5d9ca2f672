package persistence_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/persistence"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestTodoFilterMatches(t *testing.T) {
	t.Parallel()

	from := date(2024, time.January, 10)
	to := date(2024, time.January, 20)
	base := persistence.Todo{
		ID:         "todo-1",
		SeriesID:   "series-1",
		DueDate:    date(2024, time.January, 15),
		Status:     persistence.StatusIncomplete,
		RepeatType: persistence.RepeatNone,
	}

	tests := []struct {
		name   string
		filter persistence.TodoFilter
		mutate func(*persistence.Todo)
		want   bool
	}{
		{name: "empty filter", want: true},
		{name: "inside range", filter: persistence.TodoFilter{DueFrom: &from, DueTo: &to}, want: true},
		{name: "inclusive lower bound", filter: persistence.TodoFilter{DueFrom: &from}, mutate: func(td *persistence.Todo) { td.DueDate = from }, want: true},
		{name: "inclusive upper bound", filter: persistence.TodoFilter{DueTo: &to}, mutate: func(td *persistence.Todo) { td.DueDate = to }, want: true},
		{name: "before range", filter: persistence.TodoFilter{DueFrom: &from}, mutate: func(td *persistence.Todo) { td.DueDate = date(2024, time.January, 9) }, want: false},
		{name: "after range", filter: persistence.TodoFilter{DueTo: &to}, mutate: func(td *persistence.Todo) { td.DueDate = date(2024, time.January, 21) }, want: false},
		{name: "status mismatch", filter: persistence.TodoFilter{Status: persistence.StatusComplete}, want: false},
		{name: "series mismatch", filter: persistence.TodoFilter{SeriesID: "series-2"}, want: false},
		{name: "deleted hidden", mutate: func(td *persistence.Todo) { td.IsDeleted = true }, want: false},
		{name: "deleted included", filter: persistence.TodoFilter{IncludeDeleted: true}, mutate: func(td *persistence.Todo) { td.IsDeleted = true }, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			todo := base
			if tt.mutate != nil {
				tt.mutate(&todo)
			}
			if got := tt.filter.Matches(todo); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTodoKinds(t *testing.T) {
	t.Parallel()

	template := persistence.Todo{RepeatType: persistence.RepeatWeekly}
	if !template.IsTemplate() || template.IsTombstone() {
		t.Fatalf("weekly row should be a template")
	}

	tombstone := persistence.Todo{RepeatType: persistence.RepeatNone, IsDeleted: true}
	if tombstone.IsTemplate() || !tombstone.IsTombstone() {
		t.Fatalf("deleted row should be a tombstone")
	}

	plain := persistence.Todo{RepeatType: persistence.RepeatNone}
	if plain.IsTemplate() || plain.IsTombstone() {
		t.Fatalf("plain row should be neither template nor tombstone")
	}
}

func TestSortByDueDate(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	todos := []persistence.Todo{
		{ID: "c", DueDate: date(2024, time.January, 2), CreatedAt: base},
		{ID: "b", DueDate: date(2024, time.January, 1), CreatedAt: base},
		{ID: "a", DueDate: date(2024, time.January, 1), CreatedAt: base.Add(time.Hour)},
		{ID: "d", DueDate: date(2024, time.January, 1), CreatedAt: base},
	}

	persistence.SortByDueDate(todos)

	want := []string{"a", "b", "d", "c"}
	for i, id := range want {
		if todos[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, todos[i].ID)
		}
	}
}

func TestSortByCreatedDesc(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	todos := []persistence.Todo{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(time.Minute)},
	}

	persistence.SortByCreatedDesc(todos)

	if todos[0].ID != "new" || todos[1].ID != "old" {
		t.Fatalf("unexpected order: %s, %s", todos[0].ID, todos[1].ID)
	}
}
