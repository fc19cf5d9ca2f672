package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/persistence"
)

// timestampLayout is fixed width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const todoColumns = `id, series_id, title, content, due_date, status, repeat_type, repeat_day, is_deleted, created_at, updated_at`

// TodoRepository implements persistence.TodoRepository using SQLite
type TodoRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewTodoRepository creates a new SQLite to-do repository
func NewTodoRepository(pool *ConnectionPool) *TodoRepository {
	return &TodoRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// CreateTodo inserts a new to-do row
func (r *TodoRepository) CreateTodo(ctx context.Context, todo persistence.Todo) error {
	if todo.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = r.now()
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = todo.CreatedAt
	}
	if todo.RepeatType == "" {
		todo.RepeatType = persistence.RepeatNone
	}

	const query = `
		INSERT INTO todos (` + todoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			todo.ID,
			todo.SeriesID,
			todo.Title,
			nullString(todo.Content),
			todo.DueDate.String(),
			todo.Status,
			todo.RepeatType,
			nullInt(todo.RepeatDay),
			todo.IsDeleted,
			formatTimestamp(todo.CreatedAt),
			formatTimestamp(todo.UpdatedAt),
		)
		return err
	})
}

// UpdateTodo overwrites the mutable fields of an existing row
func (r *TodoRepository) UpdateTodo(ctx context.Context, todo persistence.Todo) error {
	if todo.ID == "" {
		return persistence.ErrNotFound
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = r.now()
	}
	if todo.RepeatType == "" {
		todo.RepeatType = persistence.RepeatNone
	}

	const query = `
		UPDATE todos
		SET series_id = ?, title = ?, content = ?, due_date = ?, status = ?,
			repeat_type = ?, repeat_day = ?, is_deleted = ?, updated_at = ?
		WHERE id = ?
	`
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			todo.SeriesID,
			todo.Title,
			nullString(todo.Content),
			todo.DueDate.String(),
			todo.Status,
			todo.RepeatType,
			nullInt(todo.RepeatDay),
			todo.IsDeleted,
			formatTimestamp(todo.UpdatedAt),
			todo.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// GetTodo retrieves a row by ID
func (r *TodoRepository) GetTodo(ctx context.Context, id string) (persistence.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = ?`
	todo, err := scanTodo(r.pool.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Todo{}, r.mapper.MapError(err)
	}
	return todo, nil
}

// ListTodos returns rows matching the filter ordered by due date, newest first within a day
func (r *TodoRepository) ListTodos(ctx context.Context, filter persistence.TodoFilter) ([]persistence.Todo, error) {
	query, args := buildListQuery(filter)
	return r.query(ctx, query, args...)
}

// ListRecurringTemplates returns live templates, newest first
func (r *TodoRepository) ListRecurringTemplates(ctx context.Context) ([]persistence.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE repeat_type != 'none' AND is_deleted = 0
		ORDER BY created_at DESC, id ASC
	`
	return r.query(ctx, query)
}

// ListTombstones returns deletion markers dated within [from, to]
func (r *TodoRepository) ListTombstones(ctx context.Context, from, to civil.Date) ([]persistence.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE is_deleted = 1 AND due_date >= ? AND due_date <= ?
		ORDER BY due_date ASC, created_at DESC, id ASC
	`
	return r.query(ctx, query, from.String(), to.String())
}

// DeleteTodo removes a row by ID
func (r *TodoRepository) DeleteTodo(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func (r *TodoRepository) query(ctx context.Context, query string, args ...any) ([]persistence.Todo, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var todos []persistence.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return todos, nil
}

// buildListQuery builds the SQL query for listing to-dos with filters
func buildListQuery(filter persistence.TodoFilter) (string, []any) {
	query := `SELECT ` + todoColumns + ` FROM todos`

	var (
		conditions []string
		args       []any
	)
	if !filter.IncludeDeleted {
		conditions = append(conditions, "is_deleted = 0")
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, "due_date >= ?")
		args = append(args, filter.DueFrom.String())
	}
	if filter.DueTo != nil {
		conditions = append(conditions, "due_date <= ?")
		args = append(args, filter.DueTo.String())
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.SeriesID != "" {
		conditions = append(conditions, "series_id = ?")
		args = append(args, filter.SeriesID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date ASC, created_at DESC, id ASC"

	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (persistence.Todo, error) {
	var (
		todo                 persistence.Todo
		content              sql.NullString
		dueDate              string
		repeatDay            sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(
		&todo.ID,
		&todo.SeriesID,
		&todo.Title,
		&content,
		&dueDate,
		&todo.Status,
		&todo.RepeatType,
		&repeatDay,
		&todo.IsDeleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Todo{}, err
	}

	if content.Valid {
		todo.Content = &content.String
	}
	if repeatDay.Valid {
		day := int(repeatDay.Int64)
		todo.RepeatDay = &day
	}
	if todo.DueDate, err = civil.ParseDate(dueDate); err != nil {
		return persistence.Todo{}, fmt.Errorf("failed to parse due_date: %w", err)
	}
	if todo.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return persistence.Todo{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if todo.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return persistence.Todo{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return todo, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

var _ persistence.TodoRepository = (*TodoRepository)(nil)
