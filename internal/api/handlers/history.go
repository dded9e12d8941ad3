package handlers

import (
	"net/http"
	"strconv"

	"github.com/pysugar/cloudcode-quota/internal/history"
)

// HistoryHandler serves recent quota snapshots. When no recorder is wired
// (history database disabled) the endpoint reports that instead of failing.
func HistoryHandler(rec *history.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "history disabled, set HISTORY_DB to enable",
			})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		snaps, err := rec.Recent(r.URL.Query().Get("provider"), limit)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"snapshots": snaps})
	}
}
