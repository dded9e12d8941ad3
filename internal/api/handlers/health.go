package handlers

import (
	"net/http"
	"time"

	"github.com/pysugar/cloudcode-quota/internal/version"
)

// HealthHandler reports liveness plus build metadata.
func HealthHandler(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"version":    version.Version,
			"commit":     version.Commit,
			"build_time": version.BuildTime,
			"uptime":     time.Since(started).Round(time.Second).String(),
		})
	}
}
