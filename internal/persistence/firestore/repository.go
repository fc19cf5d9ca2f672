// Package firestore implements the to-do data source on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/bsmanager/internal/persistence"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "todos"

// todoDocument is the stored document shape. Due dates are YYYY-MM-DD strings
// so that range queries order the same way as calendar dates.
type todoDocument struct {
	ID         string    `firestore:"id"`
	SeriesID   string    `firestore:"seriesId"`
	Title      string    `firestore:"title"`
	Content    *string   `firestore:"content"`
	DueDate    string    `firestore:"dueDate"`
	Status     string    `firestore:"status"`
	RepeatType string    `firestore:"repeatType"`
	RepeatDay  *int      `firestore:"repeatDay"`
	IsDeleted  bool      `firestore:"isDeleted"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

// Repository implements persistence.TodoRepository on a Firestore collection.
//
// Queries only use single-field range filters on dueDate so that no composite
// index is required; the remaining filter terms are applied in process.
type Repository struct {
	client     *firestore.Client
	collection string
	ownsClient bool
}

// New connects to projectID and stores to-dos in collection.
func New(ctx context.Context, projectID, collection string) (*Repository, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: failed to create client: %w", err)
	}
	repo := NewWithClient(client, collection)
	repo.ownsClient = true
	return repo, nil
}

// NewWithClient wraps an existing client. Close leaves the client open.
func NewWithClient(client *firestore.Client, collection string) *Repository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Repository{client: client, collection: collection}
}

// Close releases the client when the repository created it.
func (r *Repository) Close() error {
	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}

// Ping reads at most one document to confirm the collection is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	iter := r.todos().Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore: ping failed: %w", err)
	}
	return nil
}

func (r *Repository) todos() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

// CreateTodo stores a new document keyed by the to-do ID.
func (r *Repository) CreateTodo(ctx context.Context, todo persistence.Todo) error {
	if todo.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if todo.RepeatType == "" {
		todo.RepeatType = persistence.RepeatNone
	}
	if _, err := r.todos().Doc(todo.ID).Create(ctx, toDocument(todo)); err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateTodo overwrites the mutable fields of an existing document.
func (r *Repository) UpdateTodo(ctx context.Context, todo persistence.Todo) error {
	if todo.ID == "" {
		return persistence.ErrNotFound
	}
	if todo.RepeatType == "" {
		todo.RepeatType = persistence.RepeatNone
	}
	doc := toDocument(todo)
	updates := []firestore.Update{
		{Path: "seriesId", Value: doc.SeriesID},
		{Path: "title", Value: doc.Title},
		{Path: "content", Value: doc.Content},
		{Path: "dueDate", Value: doc.DueDate},
		{Path: "status", Value: doc.Status},
		{Path: "repeatType", Value: doc.RepeatType},
		{Path: "repeatDay", Value: doc.RepeatDay},
		{Path: "isDeleted", Value: doc.IsDeleted},
		{Path: "updatedAt", Value: doc.UpdatedAt},
	}
	if _, err := r.todos().Doc(todo.ID).Update(ctx, updates); err != nil {
		return mapError(err)
	}
	return nil
}

// GetTodo retrieves a document by ID.
func (r *Repository) GetTodo(ctx context.Context, id string) (persistence.Todo, error) {
	if id == "" {
		return persistence.Todo{}, persistence.ErrNotFound
	}
	snapshot, err := r.todos().Doc(id).Get(ctx)
	if err != nil {
		return persistence.Todo{}, mapError(err)
	}
	return decode(snapshot)
}

// ListTodos returns documents matching the filter ordered by due date.
func (r *Repository) ListTodos(ctx context.Context, filter persistence.TodoFilter) ([]persistence.Todo, error) {
	query := r.todos().Query
	if filter.DueFrom != nil {
		query = query.Where("dueDate", ">=", filter.DueFrom.String())
	}
	if filter.DueTo != nil {
		query = query.Where("dueDate", "<=", filter.DueTo.String())
	}

	todos, err := r.collect(ctx, query, filter.Matches)
	if err != nil {
		return nil, err
	}
	persistence.SortByDueDate(todos)
	return todos, nil
}

// ListRecurringTemplates returns live templates, newest first.
func (r *Repository) ListRecurringTemplates(ctx context.Context) ([]persistence.Todo, error) {
	query := r.todos().Where("repeatType", "in", []string{persistence.RepeatWeekly, persistence.RepeatMonthly})
	todos, err := r.collect(ctx, query, persistence.Todo.IsTemplate)
	if err != nil {
		return nil, err
	}
	persistence.SortByCreatedDesc(todos)
	return todos, nil
}

// ListTombstones returns deletion markers dated within [from, to].
func (r *Repository) ListTombstones(ctx context.Context, from, to civil.Date) ([]persistence.Todo, error) {
	query := r.todos().
		Where("dueDate", ">=", from.String()).
		Where("dueDate", "<=", to.String())
	todos, err := r.collect(ctx, query, persistence.Todo.IsTombstone)
	if err != nil {
		return nil, err
	}
	persistence.SortByDueDate(todos)
	return todos, nil
}

// DeleteTodo removes a document, failing when it does not exist.
func (r *Repository) DeleteTodo(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	if _, err := r.todos().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *Repository) collect(ctx context.Context, query firestore.Query, keep func(persistence.Todo) bool) ([]persistence.Todo, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var todos []persistence.Todo
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore: failed to iterate todos: %w", err)
		}
		todo, err := decode(snapshot)
		if err != nil {
			return nil, err
		}
		if keep(todo) {
			todos = append(todos, todo)
		}
	}
	return todos, nil
}

func decode(snapshot *firestore.DocumentSnapshot) (persistence.Todo, error) {
	var doc todoDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return persistence.Todo{}, fmt.Errorf("firestore: failed to decode todo %s: %w", snapshot.Ref.ID, err)
	}
	due, err := civil.ParseDate(doc.DueDate)
	if err != nil {
		return persistence.Todo{}, fmt.Errorf("firestore: todo %s has invalid dueDate %q: %w", snapshot.Ref.ID, doc.DueDate, err)
	}
	if doc.ID == "" {
		doc.ID = snapshot.Ref.ID
	}
	return persistence.Todo{
		ID:         doc.ID,
		SeriesID:   doc.SeriesID,
		Title:      doc.Title,
		Content:    doc.Content,
		DueDate:    due,
		Status:     doc.Status,
		RepeatType: doc.RepeatType,
		RepeatDay:  doc.RepeatDay,
		IsDeleted:  doc.IsDeleted,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func toDocument(todo persistence.Todo) todoDocument {
	return todoDocument{
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
	}
}

// mapError translates gRPC status codes into persistence sentinels.
func mapError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return persistence.ErrNotFound
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case codes.FailedPrecondition, codes.InvalidArgument:
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return fmt.Errorf("firestore: %w", err)
}

var _ persistence.TodoRepository = (*Repository)(nil)
