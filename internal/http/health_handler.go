package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the configured data source is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pinger     Pinger
	dataSource string
	responder  responder
	logger     *slog.Logger
}

func NewHealthHandler(pinger Pinger, dataSource string, logger *slog.Logger) *HealthHandler {
	base := defaultLogger(logger)
	return &HealthHandler{pinger: pinger, dataSource: dataSource, responder: newResponder(base), logger: base}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", DataSource: h.dataSource}
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			handlerLogger(r.Context(), h.logger, "HealthHandler", "Check").WarnContext(r.Context(), "data source unreachable", "error", err)
			resp.Status = "unavailable"
			h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type healthResponse struct {
	Status     string `json:"status"`
	DataSource string `json:"data_source"`
}
