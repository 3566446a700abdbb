package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/seikyu-app/seikyu/internal/backup"
	"github.com/seikyu-app/seikyu/internal/estimates"
	"github.com/seikyu-app/seikyu/internal/invoices"
	"github.com/seikyu-app/seikyu/internal/masterdata"
	"github.com/seikyu-app/seikyu/internal/observability"
	"github.com/seikyu-app/seikyu/internal/rawsql"
	"github.com/seikyu-app/seikyu/internal/settings"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	InvoicesHandler   *invoices.Handler
	EstimatesHandler  *estimates.Handler
	MasterDataHandler *masterdata.Handler
	SettingsHandler   *settings.Handler
	BackupHandler     *backup.Handler
	RawSQLHandler     *rawsql.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router serving the UI client.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		params.InvoicesHandler.MountRoutes(r)
		params.EstimatesHandler.MountRoutes(r)
		params.MasterDataHandler.MountRoutes(r)
		params.SettingsHandler.MountRoutes(r)
		params.BackupHandler.MountRoutes(r)
		params.RawSQLHandler.MountRoutes(r)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
