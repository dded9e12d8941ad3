package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Cloud Code endpoints in quota-fetch fallback order: prod first, daily only
// when prod is throttled or down.
var CloudCodeBaseURLs = []string{
	"https://cloudcode-pa.googleapis.com",
	"https://daily-cloudcode-pa.googleapis.com",
}

// CloudCodeClient fetches model quota information from the Cloud Code
// internal API using a bearer access token.
type CloudCodeClient struct {
	httpClient *http.Client
	baseURLs   []string
	userAgent  string
}

// NewCloudCodeClient creates a client with the given User-Agent. The agent
// string must match a known Antigravity build or the API rejects the call.
func NewCloudCodeClient(userAgent string) *CloudCodeClient {
	return &CloudCodeClient{
		httpClient: newHTTPClient(defaultTimeout),
		baseURLs:   CloudCodeBaseURLs,
		userAgent:  userAgent,
	}
}

// FetchAvailableModels retrieves the raw quota payload for all models visible
// to the account. projectID is optional; when present it is sent in the
// request body.
func (c *CloudCodeClient) FetchAvailableModels(ctx context.Context, accessToken, projectID string) ([]byte, error) {
	payload := []byte(`{}`)
	if strings.TrimSpace(projectID) != "" {
		payload = fmt.Appendf(nil, `{"project":%q}`, projectID)
	}
	return c.post(ctx, "fetchAvailableModels", accessToken, payload)
}

// LoadCodeAssist discovers the upstream project identifier for accounts whose
// stored record lacks one.
func (c *CloudCodeClient) LoadCodeAssist(ctx context.Context, accessToken string) (string, error) {
	body, err := c.post(ctx, "loadCodeAssist", accessToken, []byte(`{"metadata":{"ideType":"ANTIGRAVITY"}}`))
	if err != nil {
		return "", err
	}

	// The project shows up either as a plain string or an object with an id.
	if project := gjson.GetBytes(body, "cloudaicompanionProject"); project.Exists() {
		if project.Type == gjson.String && project.String() != "" {
			return project.String(), nil
		}
		if id := project.Get("id"); id.String() != "" {
			return id.String(), nil
		}
	}
	if id := gjson.GetBytes(body, "codeAssistConfig.projectId"); id.String() != "" {
		return id.String(), nil
	}
	return "", fmt.Errorf("project not found in loadCodeAssist response")
}

func (c *CloudCodeClient) post(ctx context.Context, method, accessToken string, payload []byte) ([]byte, error) {
	var lastErr error
	for idx, base := range c.baseURLs {
		url := fmt.Sprintf("%s/v1internal:%s", strings.TrimSuffix(base, "/"), method)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if idx > 0 {
				log.Infof("cloudcode: fallback endpoint %s succeeded", base)
			}
			return body, nil
		case isForbiddenStatus(resp.StatusCode):
			return nil, fmt.Errorf("%w: %s status %d", ErrForbidden, method, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: %s status %d: %s", ErrUnavailable, method, resp.StatusCode, truncate(body))
			log.Debugf("cloudcode: endpoint %s returned %d, trying next", base, resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("cloudcode %s failed: status %d: %s", method, resp.StatusCode, truncate(body))
		}
	}
	return nil, lastErr
}

func truncate(b []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(b))
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [%d bytes total]", len(s))
}
