package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const quotaLimitPath = "/api/monitor/usage/quota/limit"

// ZaiClient fetches GLM coding-plan quota from the Z.ai/Zhipu monitor API
// using a static bearer token.
type ZaiClient struct {
	httpClient *http.Client
	baseDomain string
	authToken  string
}

// NewZaiClient resolves the monitor base domain from the configured Anthropic
// base URL and binds the static auth token.
func NewZaiClient(baseURL, authToken string) (*ZaiClient, error) {
	if strings.TrimSpace(authToken) == "" {
		return nil, fmt.Errorf("ANTHROPIC_AUTH_TOKEN is not set")
	}
	_, domain, err := ResolveBaseDomain(baseURL)
	if err != nil {
		return nil, err
	}
	return &ZaiClient{
		httpClient: newHTTPClient(10 * time.Second),
		baseDomain: domain,
		authToken:  authToken,
	}, nil
}

// ResolveBaseDomain extracts the platform name and monitor base domain from
// an Anthropic-compatible base URL.
func ResolveBaseDomain(baseURL string) (string, string, error) {
	if strings.Contains(baseURL, "api.z.ai") {
		return "ZAI", "https://api.z.ai", nil
	}
	if strings.Contains(baseURL, "open.bigmodel.cn") || strings.Contains(baseURL, "dev.bigmodel.cn") {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return "", "", fmt.Errorf("failed to parse base URL: %w", err)
		}
		return "ZHIPU", fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), nil
	}
	return "", "", fmt.Errorf("unrecognized ANTHROPIC_BASE_URL: %s (supported: https://api.z.ai/api/anthropic or https://open.bigmodel.cn/api/anthropic)", baseURL)
}

// QuotaLimit fetches the raw quota-limit payload. The monitor API wraps the
// useful part in a "data" envelope; the envelope is stripped here.
func (c *ZaiClient) QuotaLimit(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseDomain+quotaLimitPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authToken)
	req.Header.Set("Accept-Language", "en-US,en")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if isForbiddenStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: quota limit status %d", ErrForbidden, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: quota limit status %d: %s", ErrUnavailable, resp.StatusCode, truncate(body))
	}

	if data := gjson.GetBytes(body, "data"); data.IsObject() {
		return []byte(data.Raw), nil
	}
	return body, nil
}
