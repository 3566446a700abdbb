package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seikyu-app/seikyu/internal/platform/httpx"
)

// Handler exposes invoice operations to the UI client.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.List)
	r.Get("/invoices/next-id", h.NextID)
	r.Get("/invoices/{id}", h.Show)
	r.Post("/invoices/save", h.Save)
	r.Delete("/invoices/{id}", h.Delete)
}

// SaveResponse renders the three save outcomes. Success-with-warning is a
// first-class state the UI renders distinctly from plain success.
type SaveResponse struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id"`
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	result, err := h.service.Save(r.Context(), draft)
	if err != nil {
		h.logger.Error("invoice save failed", slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, SaveResponse{Success: true, ID: result.ID, Warning: result.Warning})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("invoice delete failed", slog.Int64("id", id), slog.String("error", err.Error()))
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
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) NextID(w http.ResponseWriter, r *http.Request) {
	next, err := h.service.NextID(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"nextId": next})
}
