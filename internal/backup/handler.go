package backup

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seikyu-app/seikyu/internal/platform/httpx"
)

// Handler exposes backup and restore to the UI client.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers backup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/backup", h.Backup)
	r.Post("/backup/restore", h.Restore)
}

type pathRequest struct {
	Path string `json:"path"`
}

func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Path == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "destination path required")
		return
	}
	if err := h.service.Backup(req.Path); err != nil {
		h.logger.Error("backup failed", slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusInternalServerError, "Backup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Path == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "source path required")
		return
	}
	if err := h.service.Restore(req.Path); err != nil {
		h.logger.Error("restore failed", slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusInternalServerError, "Restore Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "restartRequired": true})
}
