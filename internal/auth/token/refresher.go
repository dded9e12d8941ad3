// Package token handles access-token lifecycle: expiry detection, renewal via
// the OAuth refresh-token grant, and write-back of the refreshed record.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/pysugar/cloudcode-quota/internal/account"
)

// ErrRefreshRejected indicates the identity provider refused the grant. The
// stored refresh token is presumed invalid; retrying cannot fix it and the
// account needs re-provisioning.
var ErrRefreshRejected = errors.New("refresh token rejected")

// DefaultExpiryMargin keeps a token from being handed out when it would
// expire mid-request.
const DefaultExpiryMargin = 5 * time.Minute

// Refresher serializes token renewal for the single stored credential record.
type Refresher struct {
	store  *account.Store
	oauth  *oauth2.Config
	margin time.Duration

	mu  sync.Mutex
	now func() time.Time
}

// NewRefresher creates a refresher over the given store and OAuth config.
func NewRefresher(store *account.Store, oauthCfg *oauth2.Config) *Refresher {
	return &Refresher{
		store:  store,
		oauth:  oauthCfg,
		margin: DefaultExpiryMargin,
		now:    time.Now,
	}
}

// Fresh returns the credential record with a usable access token, performing
// at most one refresh exchange when the stored token is at or past the expiry
// margin. Concurrent callers are serialized; a record that was just refreshed
// by another caller is recognized by its new expiry and not refreshed again.
func (r *Refresher) Fresh(ctx context.Context) (account.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.Load()
	if err != nil {
		return account.Record{}, err
	}
	if !rec.Usable() {
		return account.Record{}, fmt.Errorf("account %s: %w", r.store.Path(), account.ErrMissingFields)
	}

	if rec.ExpiresAt().After(r.now().Add(r.margin)) {
		return rec, nil
	}

	log.Debugf("token: access token expires at %s, refreshing", rec.ExpiresAt().Format(time.RFC3339))

	src := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken})
	newToken, err := src.Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			return account.Record{}, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
		}
		return account.Record{}, fmt.Errorf("token refresh failed: %w", err)
	}

	rec.AccessToken = newToken.AccessToken
	rec.ExpiryTimestamp = newToken.Expiry.Unix()
	// Persist a rotated refresh token if the provider returned one.
	if newToken.RefreshToken != "" && newToken.RefreshToken != rec.RefreshToken {
		log.Info("token: refresh token rotated by provider")
		rec.RefreshToken = newToken.RefreshToken
	}

	if err := r.store.Save(rec); err != nil {
		return account.Record{}, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	log.Infof("token: refreshed, expires %s", newToken.Expiry.Format(time.RFC3339))
	return rec, nil
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
