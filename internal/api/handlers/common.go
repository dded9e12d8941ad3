// Package handlers implements the HTTP surface: shaped quota responses,
// the plain-text status view, snapshot history, and health.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/pysugar/cloudcode-quota/internal/account"
	"github.com/pysugar/cloudcode-quota/internal/auth/token"
	"github.com/pysugar/cloudcode-quota/internal/logging"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps the error taxonomy onto HTTP statuses. Credential
// provisioning problems are configuration errors on this side, everything
// else is an upstream failure.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	message := "failed to fetch quota from upstream"
	switch {
	case errors.Is(err, account.ErrNotFound):
		status = http.StatusInternalServerError
		message = "credential file not found, run the provider login flow first"
	case errors.Is(err, account.ErrMissingFields):
		status = http.StatusInternalServerError
		message = "credential file is missing access or refresh token"
	case errors.Is(err, token.ErrRefreshRejected):
		message = "token refresh rejected by identity provider, re-login required"
	}
	log.WithFields(log.Fields{
		"request_id": logging.GetRequestID(r.Context()),
		"path":       r.URL.Path,
		"status":     status,
	}).Errorf("request failed: %v", err)
	respondJSON(w, status, map[string]string{"error": message})
}
