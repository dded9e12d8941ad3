// Package quota holds the debounced per-provider quota cache and the
// response shaping that turns raw provider payloads into the canonical
// model list served by the HTTP layer.
package quota

import "strings"

// Model is one quota line in the canonical response shape.
type Model struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	ResetTime  string `json:"reset_time,omitempty"`
}

// Quota is the shaped per-provider response body.
type Quota struct {
	Models      []Model `json:"models"`
	LastUpdated int64   `json:"last_updated"`
	IsForbidden bool    `json:"is_forbidden"`
	Stale       bool    `json:"stale,omitempty"`
}

// FilterModels keeps only models whose name contains at least one of the
// given substring patterns. Metadata fields pass through unchanged.
func FilterModels(q Quota, patterns []string) Quota {
	filtered := []Model{}
	for _, m := range q.Models {
		for _, p := range patterns {
			if strings.Contains(m.Name, p) {
				filtered = append(filtered, m)
				break
			}
		}
	}
	q.Models = filtered
	return q
}
