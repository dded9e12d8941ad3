package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pysugar/cloudcode-quota/internal/history"
	"github.com/pysugar/cloudcode-quota/internal/logging"
	"github.com/pysugar/cloudcode-quota/internal/quota"
)

// Router builds the service's full route tree. rec may be nil when the
// history database is disabled.
func Router(svc *quota.Service, rec *history.Recorder, started time.Time) chi.Router {
	r := chi.NewRouter()
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/quota", QuotaHandler(svc))
	r.Get("/quota/{pattern}", QuotaHandler(svc))
	r.Get("/glm", GLMHandler(svc))
	r.Get("/status", StatusHandler(svc))
	r.Get("/history", HistoryHandler(rec))
	r.Get("/healthz", HealthHandler(started))

	return r
}
