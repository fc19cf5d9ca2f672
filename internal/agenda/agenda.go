// Package agenda logs a digest of the day's to-dos on a cron schedule.
package agenda

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/robfig/cron/v3"

	"github.com/example/bsmanager/internal/application"
	"github.com/example/bsmanager/internal/config"
)

const runTimeout = 30 * time.Second

type viewer interface {
	ListView(ctx context.Context, params application.ViewParams) (application.View, error)
	Today() civil.Date
}

// Job renders today's view and logs it each time its schedule fires.
type Job struct {
	todos  viewer
	logger *slog.Logger
	cron   *cron.Cron
}

// New creates a job evaluating schedules in loc. A nil loc means UTC.
func New(todos viewer, loc *time.Location, logger *slog.Logger) *Job {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "agenda")
	cl := cronLogger{logger: logger}
	return &Job{
		todos:  todos,
		logger: logger,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(config.ScheduleParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Schedule registers the digest under a six-field cron spec.
func (j *Job) Schedule(spec string) (cron.EntryID, error) {
	return j.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := j.Run(ctx); err != nil {
			j.logger.ErrorContext(ctx, "agenda run failed", "error", err, "error_kind", application.ErrorKind(err))
		}
	})
}

func (j *Job) Start() {
	j.cron.Start()
}

// Stop halts the scheduler and waits for a running digest to finish.
func (j *Job) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// Run builds and logs the digest for today.
func (j *Job) Run(ctx context.Context) (Digest, error) {
	today := j.todos.Today()
	view, err := j.todos.ListView(ctx, application.ViewParams{
		Period:    application.ListPeriodDay,
		Reference: today,
		Status:    application.StatusFilterAll,
	})
	if err != nil {
		return Digest{}, err
	}

	digest := BuildDigest(today, view.Occurrences)
	j.logger.InfoContext(ctx, "daily agenda",
		"date", today.String(),
		"total", digest.Total,
		"pending", digest.Pending,
		"digest", digest.String(),
	)
	return digest, nil
}

// Entry is one line of a digest.
type Entry struct {
	Title     string
	Completed bool
	Recurring bool
}

// Digest summarises the occurrences of one day.
type Digest struct {
	Date    civil.Date
	Total   int
	Pending int
	Entries []Entry
}

// BuildDigest lists pending entries before completed ones, keeping view order
// within each group.
func BuildDigest(date civil.Date, occurrences []application.Occurrence) Digest {
	digest := Digest{Date: date, Total: len(occurrences)}
	var done []Entry
	for _, occurrence := range occurrences {
		todo := occurrence.Record()
		entry := Entry{Title: todo.Title, Completed: todo.Status == application.StatusComplete}
		if _, ok := occurrence.(application.VirtualOccurrence); ok {
			entry.Recurring = true
		} else if todo.Repeat.Recurs() || todo.SeriesID != "" {
			entry.Recurring = true
		}
		if entry.Completed {
			done = append(done, entry)
			continue
		}
		digest.Pending++
		digest.Entries = append(digest.Entries, entry)
	}
	digest.Entries = append(digest.Entries, done...)
	return digest
}

func (d Digest) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 할 일 %d건 (미완료 %d건)", d.Date, d.Total, d.Pending)
	if d.Total == 0 {
		b.WriteString("\n오늘 예정된 할 일이 없습니다.")
		return b.String()
	}
	for _, entry := range d.Entries {
		mark := "[ ]"
		if entry.Completed {
			mark = "[x]"
		}
		fmt.Fprintf(&b, "\n%s %s", mark, entry.Title)
		if entry.Recurring {
			b.WriteString(" (반복)")
		}
	}
	return b.String()
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
