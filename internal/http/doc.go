// Package http provides HTTP handlers and middleware for the to-do API.
//
// The router exposes the following endpoints:
//   - GET /todos: assembled view. Query: view=day|week|month, date, start, end
//     (YYYY-MM-DD) and status=all|incomplete|complete. Without start/end the
//     view preset defaults to day around today. Responses carry the flat list
//     and the same entries grouped by date.
//   - POST /todos, GET /todos/{id}, PUT /todos/{id}: plain CRUD exchanging the
//     `todoRequest` and `todoDTO` payloads defined in todo_handler.go. {id} may
//     be a virtual occurrence id, which addresses its template.
//   - DELETE /todos/{id}?scope=single|series: deletes one occurrence or the
//     whole series.
//   - PUT /todos/{id}/status: body {"status","date"}; changes the status of one
//     occurrence. An empty status toggles.
//   - GET /todos/recurring: lists recurring templates.
//   - GET /healthz: data source liveness.
//
// Errors are JSON {"message","errors"} with Korean messages.
package http
