package memory

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/persistence"
	"github.com/example/bsmanager/internal/recurrence"
)

// SeedDemo inserts the demo data set for today: a plain to-do, a weekly
// meeting on today's weekday and a monthly report on today's day of month.
// It does nothing when the store already holds rows.
func SeedDemo(ctx context.Context, store *Store, today civil.Date, now time.Time, newID func() string) error {
	if store.Len() > 0 {
		return nil
	}

	weekday := recurrence.ISOWeekday(today)
	day := today.Day
	plan := "신규 프로젝트 기획서 초안 작성"
	meeting := "주간 팀 미팅 참석"
	report := "월간 업무 보고서 제출"

	seed := []persistence.Todo{
		{Title: "프로젝트 기획서 작성", Content: &plan, Status: persistence.StatusIncomplete, RepeatType: persistence.RepeatNone},
		{Title: "팀 미팅", Content: &meeting, Status: persistence.StatusComplete, RepeatType: persistence.RepeatWeekly, RepeatDay: &weekday},
		{Title: "보고서 제출", Content: &report, Status: persistence.StatusIncomplete, RepeatType: persistence.RepeatMonthly, RepeatDay: &day},
	}

	for _, todo := range seed {
		todo.ID = newID()
		if todo.RepeatType != persistence.RepeatNone {
			todo.SeriesID = todo.ID
		}
		todo.DueDate = today
		todo.CreatedAt = now
		todo.UpdatedAt = now
		if err := store.CreateTodo(ctx, todo); err != nil {
			return err
		}
	}
	return nil
}
