package rawsql

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seikyu-app/seikyu/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/query", h.Query)
	r.Post("/execute", h.Execute)
}

type statementRequest struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if req.SQL == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "sql is required")
		return
	}

	rows, err := h.service.Query(r.Context(), req.SQL, req.Args...)
	if err != nil {
		h.logger.Error("raw query failed", slog.String("error", err.Error()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if req.SQL == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "sql is required")
		return
	}

	res, err := h.service.Execute(r.Context(), req.SQL, req.Args...)
	if err != nil {
		h.logger.Error("raw execute failed", slog.String("error", err.Error()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
