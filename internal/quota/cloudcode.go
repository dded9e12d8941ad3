package quota

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ShapeCloudCode turns a raw fetchAvailableModels payload into the canonical
// quota shape. Only Gemini and Claude models are reported; percentage is the
// remaining fraction scaled to 0..100. When showRelative is set the reset
// time is rendered as a countdown instead of the upstream timestamp.
func ShapeCloudCode(payload []byte, showRelative bool) Quota {
	models := []Model{}
	gjson.GetBytes(payload, "models").ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if !strings.Contains(name, "gemini") && !strings.Contains(name, "claude") {
			return true
		}
		reset := value.Get("quotaInfo.resetTime").String()
		if showRelative {
			reset = FormatTimeRemaining(reset)
		}
		models = append(models, Model{
			Name:       name,
			Percentage: int(math.Round(value.Get("quotaInfo.remainingFraction").Float() * 100)),
			ResetTime:  reset,
		})
		return true
	})
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return Quota{Models: models, LastUpdated: time.Now().Unix()}
}
