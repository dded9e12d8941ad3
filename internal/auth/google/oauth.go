// Package google builds the OAuth2 configuration used to renew Cloud Code
// access tokens via the refresh-token grant.
package google

import (
	"strings"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

// OAuth credentials from Antigravity (for learning/research purposes).
// Used when no client id/secret is configured.
const (
	DefaultClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	DefaultClientSecret = "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"
)

// Scopes required for accessing Google's internal Cloud Code API.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// OAuthConfig returns the OAuth2 config for token renewal. Empty credentials
// fall back to the built-in defaults.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	if strings.TrimSpace(clientID) == "" {
		clientID = DefaultClientID
	}
	if strings.TrimSpace(clientSecret) == "" {
		clientSecret = DefaultClientSecret
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       Scopes,
		Endpoint:     googleOAuth.Endpoint,
	}
}

// IsUsingDefaultOAuthCredentials returns true when either credential is using
// built-in defaults.
func IsUsingDefaultOAuthCredentials(clientID, clientSecret string) bool {
	return strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == ""
}
