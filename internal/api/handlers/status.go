package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pysugar/cloudcode-quota/internal/quota"
)

// StatusHandler renders both providers as a colored plain-text summary for
// terminal consumers (curl, tmux status lines).
func StatusHandler(svc *quota.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder

		writeSection := func(title string, q quota.Quota, err error) {
			fmt.Fprintf(&b, "%s\n", title)
			if err != nil {
				fmt.Fprintf(&b, "  unavailable: %v\n", err)
				return
			}
			if q.IsForbidden {
				b.WriteString("  forbidden: account has no access to the quota API\n")
				return
			}
			if len(q.Models) == 0 {
				b.WriteString("  no models reported\n")
				return
			}
			for _, m := range q.Models {
				fmt.Fprintf(&b, "  %-36s %s", m.Name, quota.FormatPercentageWithColor(m.Percentage))
				if m.ResetTime != "" {
					fmt.Fprintf(&b, "  (%s)", m.ResetTime)
				}
				b.WriteByte('\n')
			}
			if q.Stale {
				b.WriteString("  (stale: last fetch attempt failed)\n")
			}
		}

		cc, err := svc.CloudCodeQuota(r.Context(), true)
		writeSection("CloudCode:", cc, err)
		if svc.HasProvider(quota.ProviderGLM) {
			glm, err := svc.GLMQuota(r.Context())
			writeSection("GLM:", glm, err)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(b.String()))
	}
}
