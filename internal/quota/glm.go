package quota

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

const (
	glmTokenLimitLabel = "Token usage(5 Hour)"
	glmMCPLimitLabel   = "MCP usage(1 Month)"
)

// GLMUsageDetail is one MCP tool's usage inside a TIME_LIMIT entry.
type GLMUsageDetail struct {
	ModelCode string `json:"modelCode"`
	Usage     int    `json:"usage"`
}

// GLMLimit is a processed quota limit with the upstream type codes replaced
// by human-readable labels.
type GLMLimit struct {
	Type         string           `json:"type"`
	Percentage   int              `json:"percentage"`
	CurrentUsage int              `json:"currentUsage,omitempty"`
	Total        int              `json:"usage,omitempty"`
	UsageDetails []GLMUsageDetail `json:"usageDetails,omitempty"`
}

// GLMLimits is the processed quota-limit document.
type GLMLimits struct {
	Limits []GLMLimit `json:"limits"`
}

// ProcessQuotaLimit maps the raw monitor quota-limit payload into GLMLimits.
// TOKENS_LIMIT and TIME_LIMIT get display labels; unknown types keep their
// upstream code. TIME_LIMIT additionally carries current usage, the total,
// and the per-tool breakdown.
func ProcessQuotaLimit(payload []byte) GLMLimits {
	var out GLMLimits
	limits := gjson.GetBytes(payload, "limits")
	if !limits.Exists() {
		return out
	}
	out.Limits = []GLMLimit{}
	limits.ForEach(func(_, item gjson.Result) bool {
		limit := GLMLimit{
			Percentage: int(item.Get("percentage").Int()),
		}
		switch item.Get("type").String() {
		case "TOKENS_LIMIT":
			limit.Type = glmTokenLimitLabel
		case "TIME_LIMIT":
			limit.Type = glmMCPLimitLabel
			limit.CurrentUsage = int(item.Get("currentValue").Int())
			limit.Total = int(item.Get("usage").Int())
			item.Get("usageDetails").ForEach(func(_, detail gjson.Result) bool {
				limit.UsageDetails = append(limit.UsageDetails, GLMUsageDetail{
					ModelCode: detail.Get("modelCode").String(),
					Usage:     int(detail.Get("usage").Int()),
				})
				return true
			})
		default:
			limit.Type = item.Get("type").String()
		}
		out.Limits = append(out.Limits, limit)
		return true
	})
	return out
}

// ShapeGLM turns processed GLM limits into the canonical quota shape. The
// upstream reports used percentages; the response reports remaining ones.
// The MCP limit expands into one model per tool, except zread, which the
// monitor tracks but the coding plan does not meter.
func ShapeGLM(limits GLMLimits) Quota {
	models := []Model{}
	for _, limit := range limits.Limits {
		switch limit.Type {
		case glmTokenLimitLabel:
			models = append(models, Model{
				Name:       "glm",
				Percentage: 100 - limit.Percentage,
			})
		case glmMCPLimitLabel:
			models = append(models, Model{
				Name:       "glm-coding-plan-mcp-monthly",
				Percentage: 100 - limit.Percentage,
			})
			for _, detail := range limit.UsageDetails {
				if detail.ModelCode == "zread" {
					continue
				}
				toolPct := 0
				if limit.Total > 0 {
					toolPct = int(float64(detail.Usage) / float64(limit.Total) * 100)
				}
				models = append(models, Model{
					Name:       fmt.Sprintf("glm-coding-plan-%s", detail.ModelCode),
					Percentage: 100 - toolPct,
				})
			}
		}
	}
	return Quota{Models: models, LastUpdated: time.Now().Unix()}
}
