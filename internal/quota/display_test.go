package quota

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestFormatTimeRemaining(t *testing.T) {
	future := time.Now().UTC().Add(4*time.Hour + 30*time.Minute)
	got := FormatTimeRemaining(future.Format(time.RFC3339))
	if got != "4h 29m" && got != "4h 30m" {
		t.Errorf("future reset = %q, want 4h 29m or 4h 30m", got)
	}

	past := time.Now().UTC().Add(-time.Hour)
	if got := FormatTimeRemaining(past.Format(time.RFC3339)); got != "Reset due" {
		t.Errorf("past reset = %q, want Reset due", got)
	}

	if got := FormatTimeRemaining("invalid-time"); got != "" {
		t.Errorf("invalid reset = %q, want empty", got)
	}
	if got := FormatTimeRemaining(""); got != "" {
		t.Errorf("empty reset = %q, want empty", got)
	}
}

func TestFormatTimeRemainingZSuffix(t *testing.T) {
	future := time.Now().UTC().Add(2*time.Hour + 15*time.Minute)
	got := FormatTimeRemaining(future.Format("2006-01-02T15:04:05Z"))
	if got != "2h 14m" && got != "2h 15m" {
		t.Errorf("got %q, want 2h 14m or 2h 15m", got)
	}
}

func TestFormatPercentageWithColor(t *testing.T) {
	if got := FormatPercentageWithColor(100); !strings.Contains(got, "\033[32m") || !strings.Contains(got, "●") {
		t.Errorf("100%% = %q, want green dot", got)
	}
	if got := FormatPercentageWithColor(0); !strings.Contains(got, "\033[31m") || !strings.Contains(got, "●") {
		t.Errorf("0%% = %q, want red dot", got)
	}

	cases := []struct {
		pcts  []int
		color string
	}{
		{[]int{50, 75, 99}, "\033[32m"},
		{[]int{20, 35, 49}, "\033[33m"},
		{[]int{1, 10, 19}, "\033[31m"},
	}
	for _, tc := range cases {
		for _, pct := range tc.pcts {
			got := FormatPercentageWithColor(pct)
			if !strings.Contains(got, tc.color) {
				t.Errorf("%d%% = %q, want color %q", pct, got, tc.color)
			}
			if !strings.Contains(got, fmt.Sprintf("%d%%", pct)) {
				t.Errorf("%d%% = %q, want the number rendered", pct, got)
			}
			if !strings.Contains(got, "\033[0m") {
				t.Errorf("%d%% = %q, missing reset sequence", pct, got)
			}
		}
	}
}
