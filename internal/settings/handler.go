package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seikyu-app/seikyu/internal/platform/httpx"
)

// Handler exposes settings to the UI client.
type Handler struct {
	logger *slog.Logger
	store  StorePort
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, store StorePort) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings", h.Show)
	r.Post("/settings/save", h.Save)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Load(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var cfg MainConfig
	if err := httpx.DecodeJSON(r, &cfg); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.store.Save(r.Context(), cfg); err != nil {
		h.logger.Error("settings save failed", slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
