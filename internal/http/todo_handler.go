package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/example/bsmanager/internal/application"
)

type todoService interface {
	CreateTodo(ctx context.Context, params application.CreateTodoParams) (application.Todo, error)
	GetTodo(ctx context.Context, todoID string) (application.Todo, error)
	UpdateTodo(ctx context.Context, params application.UpdateTodoParams) (application.Todo, error)
	ListView(ctx context.Context, params application.ViewParams) (application.View, error)
	ListRecurring(ctx context.Context) ([]application.Todo, error)
	SetOccurrenceStatus(ctx context.Context, params application.SetOccurrenceStatusParams) (application.Todo, error)
	DeleteOccurrence(ctx context.Context, params application.DeleteOccurrenceParams) error
}

type TodoHandler struct {
	service   todoService
	responder responder
	logger    *slog.Logger
}

func NewTodoHandler(service todoService, logger *slog.Logger) *TodoHandler {
	base := defaultLogger(logger)
	return &TodoHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TodoHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TodoHandler", operation, attrs...)
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := parseViewQuery(r)
	if err != nil {
		h.log(r.Context(), "List", "error_kind", "bad_request").WarnContext(r.Context(), "invalid view query", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "List", "view", params.Period, "status_filter", params.Status)
	view, err := h.service.ListView(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "todo view failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(view.Occurrences)).InfoContext(r.Context(), "todo view listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toViewResponse(view))
}

func (h *TodoHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "ListRecurring")
	todos, err := h.service.ListRecurring(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "recurring list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]todoDTO, 0, len(todos))
	for _, todo := range todos {
		dtos = append(dtos, toTodoDTO(todo))
	}
	logger.With("result_count", len(dtos)).InfoContext(r.Context(), "recurring todos listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTodosResponse{Todos: dtos})
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode todo request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "Create")
	todo, err := h.service.CreateTodo(r.Context(), application.CreateTodoParams{Input: input})
	if err != nil {
		logger.ErrorContext(r.Context(), "todo creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("todo_id", todo.ID).InfoContext(r.Context(), "todo created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, todoResponse{Todo: toTodoDTO(todo)})
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	todoID, ok := h.todoID(w, r, "Get")
	if !ok {
		return
	}

	todo, err := h.service.GetTodo(r.Context(), todoID)
	if err != nil {
		h.log(r.Context(), "Get", "todo_id", todoID).ErrorContext(r.Context(), "todo lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, todoResponse{Todo: toTodoDTO(todo)})
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	todoID, ok := h.todoID(w, r, "Update")
	if !ok {
		return
	}

	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "todo_id", todoID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode todo update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "Update", "todo_id", todoID)
	todo, err := h.service.UpdateTodo(r.Context(), application.UpdateTodoParams{TodoID: todoID, Input: input})
	if err != nil {
		logger.ErrorContext(r.Context(), "todo update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "todo updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, todoResponse{Todo: toTodoDTO(todo)})
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	todoID, ok := h.todoID(w, r, "Delete")
	if !ok {
		return
	}

	scope := application.DeleteScope(strings.TrimSpace(r.URL.Query().Get("scope")))
	logger := h.log(r.Context(), "Delete", "todo_id", todoID, "scope", scope)
	if err := h.service.DeleteOccurrence(r.Context(), application.DeleteOccurrenceParams{TodoID: todoID, Scope: scope}); err != nil {
		logger.ErrorContext(r.Context(), "todo delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "todo deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TodoHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	todoID, ok := h.todoID(w, r, "SetStatus")
	if !ok {
		return
	}

	// An empty body toggles the current status.
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log(r.Context(), "SetStatus", "todo_id", todoID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "SetStatus", "todo_id", todoID)
	todo, err := h.service.SetOccurrenceStatus(r.Context(), application.SetOccurrenceStatusParams{
		TodoID: todoID,
		Date:   date,
		Status: application.Status(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "status change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_id", todo.ID, "status", todo.Status).InfoContext(r.Context(), "status changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, todoResponse{Todo: toTodoDTO(todo)})
}

func (h *TodoHandler) todoID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	todoID, ok := TodoIDFromContext(r.Context())
	if !ok || strings.TrimSpace(todoID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "missing todo id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTodoID)
		return "", false
	}
	return todoID, true
}

func parseViewQuery(r *http.Request) (application.ViewParams, error) {
	query := r.URL.Query()
	params := application.ViewParams{
		Period: application.ListPeriod(strings.TrimSpace(query.Get("view"))),
		Status: application.StatusFilter(strings.TrimSpace(query.Get("status"))),
	}

	var err error
	if params.Start, err = parseOptionalDate(query.Get("start")); err != nil {
		return application.ViewParams{}, err
	}
	if params.End, err = parseOptionalDate(query.Get("end")); err != nil {
		return application.ViewParams{}, err
	}
	reference, err := parseOptionalDate(query.Get("date"))
	if err != nil {
		return application.ViewParams{}, err
	}
	if reference != nil {
		params.Reference = *reference
	}

	if params.Period == application.ListPeriodNone && params.Start == nil && params.End == nil {
		params.Period = application.ListPeriodDay
	}
	return params, nil
}

func parseOptionalDate(value string) (*civil.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type todoRequest struct {
	Title      string  `json:"title"`
	Content    *string `json:"content"`
	DueDate    string  `json:"due_date"`
	Status     string  `json:"status"`
	RepeatType string  `json:"repeat_type"`
	RepeatDay  *int    `json:"repeat_day"`
}

func (r todoRequest) toInput() (application.TodoInput, error) {
	input := application.TodoInput{
		Title:   r.Title,
		Content: r.Content,
		Status:  application.Status(strings.TrimSpace(r.Status)),
		Repeat:  application.Repeat{Type: application.RepeatType(strings.TrimSpace(r.RepeatType))},
	}
	if r.RepeatDay != nil {
		input.Repeat.Day = *r.RepeatDay
	}
	due, err := parseOptionalDate(r.DueDate)
	if err != nil {
		return application.TodoInput{}, err
	}
	if due != nil {
		input.DueDate = *due
	}
	return input, nil
}

type statusRequest struct {
	Status string `json:"status"`
	Date   string `json:"date"`
}

type todoResponse struct {
	Todo todoDTO `json:"todo"`
}

type listTodosResponse struct {
	Todos []todoDTO `json:"todos"`
}

type viewResponse struct {
	Start              string         `json:"start,omitempty"`
	End                string         `json:"end,omitempty"`
	Todos              []todoDTO      `json:"todos"`
	Groups             []dateGroupDTO `json:"groups"`
	SkippedTemplateIDs []string       `json:"skipped_template_ids,omitempty"`
	AmbiguousTitles    []string       `json:"ambiguous_titles,omitempty"`
}

type dateGroupDTO struct {
	Date  string    `json:"date"`
	Todos []todoDTO `json:"todos"`
}

type todoDTO struct {
	ID          string  `json:"id"`
	SeriesID    string  `json:"series_id,omitempty"`
	Title       string  `json:"title"`
	Content     *string `json:"content,omitempty"`
	DueDate     string  `json:"due_date"`
	Status      string  `json:"status"`
	RepeatType  string  `json:"repeat_type"`
	RepeatDay   *int    `json:"repeat_day,omitempty"`
	IsRecurring bool    `json:"is_recurring"`
	OriginalID  string  `json:"original_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toTodoDTO(todo application.Todo) todoDTO {
	dto := todoDTO{
		ID:         todo.ID,
		SeriesID:   todo.SeriesID,
		Title:      todo.Title,
		Content:    todo.Content,
		DueDate:    todo.DueDate.String(),
		Status:     string(todo.Status),
		RepeatType: string(todo.Repeat.Type),
		CreatedAt:  todo.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  todo.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if todo.Repeat.Recurs() {
		day := todo.Repeat.Day
		dto.RepeatDay = &day
	}
	return dto
}

func toOccurrenceDTO(occurrence application.Occurrence) todoDTO {
	switch o := occurrence.(type) {
	case application.VirtualOccurrence:
		dto := toTodoDTO(o.Todo)
		dto.IsRecurring = true
		dto.OriginalID = o.OriginalID
		return dto
	case application.RealOccurrence:
		return toTodoDTO(o.Todo)
	default:
		return toTodoDTO(occurrence.Record())
	}
}

func toOccurrenceDTOs(occurrences []application.Occurrence) []todoDTO {
	dtos := make([]todoDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dtos = append(dtos, toOccurrenceDTO(occurrence))
	}
	return dtos
}

func toViewResponse(view application.View) viewResponse {
	resp := viewResponse{
		Todos:              toOccurrenceDTOs(view.Occurrences),
		Groups:             []dateGroupDTO{},
		SkippedTemplateIDs: view.SkippedTemplateIDs,
		AmbiguousTitles:    view.AmbiguousTitles,
	}
	if view.Start != nil {
		resp.Start = view.Start.String()
	}
	if view.End != nil {
		resp.End = view.End.String()
	}
	for _, group := range application.GroupByDate(view.Occurrences) {
		resp.Groups = append(resp.Groups, dateGroupDTO{
			Date:  group.Date.String(),
			Todos: toOccurrenceDTOs(group.Occurrences),
		})
	}
	return resp
}
