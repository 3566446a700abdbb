package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/seikyu-app/seikyu/internal/platform/httpx"
)

// Handler exposes master-data CRUD to the UI client.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers master-data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/clients", h.ListClients)
	r.Post("/clients/save", h.SaveClient)
	r.Delete("/clients/{id}", h.DeleteClient)

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.ShowProduct)
	r.Post("/products/save", h.SaveProduct)
	r.Post("/products/{id}/stock", h.CorrectStock)
	r.Delete("/products/{id}", h.DeleteProduct)

	r.Get("/units", h.ListUnits)
	r.Post("/units/save", h.SaveUnit)
	r.Delete("/units/{id}", h.DeleteUnit)

	r.Get("/projects", h.ListProjects)
	r.Post("/projects/save", h.SaveProject)
	r.Delete("/projects/{id}", h.DeleteProject)
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListClients(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) SaveClient(w http.ResponseWriter, r *http.Request) {
	var c Client
	if err := httpx.DecodeJSON(r, &c); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(c); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.repo.SaveClient(r.Context(), c)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.repo.DeleteClient)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListProducts(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) ShowProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	p, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(p); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.repo.SaveProduct(r.Context(), p)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

type stockCorrection struct {
	Stock int64 `json:"stock"`
}

// CorrectStock is the one stock write outside the reconciler: an explicit
// manual correction by the operator.
func (h *Handler) CorrectStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req stockCorrection
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.repo.SetStock(r.Context(), id, req.Stock); err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", err.Error())
		return
	}
	h.logger.Info("manual stock correction", slog.Int64("product_id", id), slog.Int64("stock", req.Stock))
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.repo.DeleteProduct)
}

func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListUnits(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) SaveUnit(w http.ResponseWriter, r *http.Request) {
	var u Unit
	if err := httpx.DecodeJSON(r, &u); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(u); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.repo.SaveUnit(r.Context(), u)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h *Handler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.repo.DeleteUnit)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListProjects(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) SaveProject(w http.ResponseWriter, r *http.Request) {
	var p Project
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(p); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.repo.SaveProject(r.Context(), p)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.repo.DeleteProject)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return 0, false
	}
	return id, true
}

func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) error) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Delete Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
