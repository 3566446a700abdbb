package estimates

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seikyu-app/seikyu/internal/platform/httpx"
)

// Handler exposes estimate operations to the UI client.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers estimate routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/estimates", h.List)
	r.Get("/estimates/{id}", h.Show)
	r.Post("/estimates/save", h.Save)
	r.Delete("/estimates/{id}", h.Delete)
	r.Post("/estimates/{id}/convert", h.Convert)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	id, err := h.service.Save(r.Context(), draft)
	if err != nil {
		h.logger.Error("estimate save failed", slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Delete Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	est, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, est)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type convertRequest struct {
	DeleteSource bool `json:"deleteSource"`
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req convertRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
	}
	result, err := h.service.Convert(r.Context(), id, req.DeleteSource)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		h.logger.Error("estimate conversion failed", slog.Int64("id", id), slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusInternalServerError, "Conversion Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
