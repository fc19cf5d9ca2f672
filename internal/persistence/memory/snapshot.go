package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/example/bsmanager/internal/persistence"
)

// snapshotFile is the on-disk layout. Hand-edited seed files may use JSON
// with comments and trailing commas.
type snapshotFile struct {
	Todos []snapshotTodo `json:"todos"`
}

type snapshotTodo struct {
	ID         string    `json:"id"`
	SeriesID   string    `json:"series_id,omitempty"`
	Title      string    `json:"title"`
	Content    *string   `json:"content,omitempty"`
	DueDate    string    `json:"due_date"`
	Status     string    `json:"status"`
	RepeatType string    `json:"repeat_type"`
	RepeatDay  *int      `json:"repeat_day,omitempty"`
	IsDeleted  bool      `json:"is_deleted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func readSnapshot(path string) ([]persistence.Todo, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: read snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("memory: parse snapshot %s: %w", path, err)
	}

	var file snapshotFile
	if err := json.Unmarshal(standardized, &file); err != nil {
		return nil, fmt.Errorf("memory: decode snapshot %s: %w", path, err)
	}

	todos := make([]persistence.Todo, 0, len(file.Todos))
	for i, record := range file.Todos {
		due, err := civil.ParseDate(record.DueDate)
		if err != nil {
			return nil, fmt.Errorf("memory: snapshot %s: todo %d: invalid due_date %q: %w", path, i, record.DueDate, err)
		}
		if record.ID == "" {
			return nil, fmt.Errorf("memory: snapshot %s: todo %d: %w: missing id", path, i, persistence.ErrConstraintViolation)
		}
		todos = append(todos, persistence.Todo{
			ID:         record.ID,
			SeriesID:   record.SeriesID,
			Title:      record.Title,
			Content:    record.Content,
			DueDate:    due,
			Status:     record.Status,
			RepeatType: record.RepeatType,
			RepeatDay:  record.RepeatDay,
			IsDeleted:  record.IsDeleted,
			CreatedAt:  record.CreatedAt,
			UpdatedAt:  record.UpdatedAt,
		})
	}
	return todos, nil
}

func writeSnapshot(path string, todos []persistence.Todo) error {
	file := snapshotFile{Todos: make([]snapshotTodo, 0, len(todos))}
	for _, todo := range todos {
		file.Todos = append(file.Todos, snapshotTodo{
			ID:         todo.ID,
			SeriesID:   todo.SeriesID,
			Title:      todo.Title,
			Content:    todo.Content,
			DueDate:    todo.DueDate.String(),
			Status:     todo.Status,
			RepeatType: todo.RepeatType,
			RepeatDay:  todo.RepeatDay,
			IsDeleted:  todo.IsDeleted,
			CreatedAt:  todo.CreatedAt.UTC(),
			UpdatedAt:  todo.UpdatedAt.UTC(),
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: encode snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("memory: write snapshot: %w", err)
	}
	return nil
}
