package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pysugar/cloudcode-quota/internal/quota"
)

// quotaResponse is the envelope every quota endpoint returns.
type quotaResponse struct {
	Quota quota.Quota `json:"quota"`
}

func showRelative(r *http.Request) bool {
	return r.URL.Query().Get("relative") == "true"
}

// patternAliases keeps the fixed routes of earlier versions working now that
// the pattern segment is a generic substring filter.
var patternAliases = map[string]string{
	"claude-4-5": "claude",
}

// QuotaHandler serves the CloudCode model quota. With a {pattern} URL
// parameter the model list is filtered to names containing the pattern.
func QuotaHandler(svc *quota.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.CloudCodeQuota(r.Context(), showRelative(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		if pattern := chi.URLParam(r, "pattern"); pattern != "" {
			if alias, ok := patternAliases[pattern]; ok {
				pattern = alias
			}
			q = quota.FilterModels(q, []string{pattern})
		}
		respondJSON(w, http.StatusOK, quotaResponse{Quota: q})
	}
}

// GLMHandler serves the GLM coding-plan quota.
func GLMHandler(svc *quota.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.HasProvider(quota.ProviderGLM) {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "GLM provider not configured, set ANTHROPIC_BASE_URL and ANTHROPIC_AUTH_TOKEN",
			})
			return
		}
		q, err := svc.GLMQuota(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, quotaResponse{Quota: q})
	}
}
