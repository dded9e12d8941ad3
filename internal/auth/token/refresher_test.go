package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/pysugar/cloudcode-quota/internal/account"
)

type fakeTokenEndpoint struct {
	srv   *httptest.Server
	calls atomic.Int64

	status int
	body   string
}

func newFakeTokenEndpoint(t *testing.T) *fakeTokenEndpoint {
	t.Helper()
	f := &fakeTokenEndpoint{
		status: http.StatusOK,
		body:   `{"access_token":"new_access","token_type":"Bearer","expires_in":3600}`,
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if err := r.ParseForm(); err == nil {
			if grant := r.PostForm.Get("grant_type"); grant != "refresh_token" {
				t.Errorf("expected grant_type refresh_token, got %q", grant)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		fmt.Fprint(w, f.body)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func newTestRefresher(t *testing.T, rec account.Record, endpoint *fakeTokenEndpoint) (*Refresher, *account.Store) {
	t.Helper()
	store := account.NewStore(filepath.Join(t.TempDir(), "account.json"))
	if err := store.Save(rec); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	cfg := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: endpoint.srv.URL + "/token"},
	}
	return NewRefresher(store, cfg), store
}

func TestFresh_ValidTokenReturnedWithoutRefresh(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	rec := account.Record{
		AccessToken:     "a",
		RefreshToken:    "r",
		ExpiryTimestamp: time.Now().Add(10 * time.Minute).Unix(),
	}
	r, store := newTestRefresher(t, rec, endpoint)

	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read account file: %v", err)
	}

	got, err := r.Fresh(context.Background())
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if got.AccessToken != "a" {
		t.Errorf("expected existing access token, got %q", got.AccessToken)
	}
	if n := endpoint.calls.Load(); n != 0 {
		t.Errorf("expected zero exchanges, got %d", n)
	}

	after, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("reread account file: %v", err)
	}
	if string(before) != string(after) {
		t.Error("fresh-token path must not write the store")
	}
}

func TestFresh_ExpiredTokenRefreshesAndPersists(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	rec := account.Record{
		AccessToken:     "old_access",
		RefreshToken:    "r",
		ExpiryTimestamp: time.Now().Add(-100 * time.Second).Unix(),
	}
	r, store := newTestRefresher(t, rec, endpoint)

	got, err := r.Fresh(context.Background())
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if got.AccessToken != "new_access" {
		t.Errorf("expected refreshed access token, got %q", got.AccessToken)
	}
	if n := endpoint.calls.Load(); n != 1 {
		t.Errorf("expected exactly one exchange, got %d", n)
	}

	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("load persisted: %v", err)
	}
	if persisted.AccessToken != "new_access" {
		t.Errorf("persisted access token: got %q", persisted.AccessToken)
	}
	wantExpiry := time.Now().Add(time.Hour).Unix()
	if diff := persisted.ExpiryTimestamp - wantExpiry; diff < -10 || diff > 10 {
		t.Errorf("persisted expiry %d not within tolerance of %d", persisted.ExpiryTimestamp, wantExpiry)
	}
	if persisted.RefreshToken != "r" {
		t.Errorf("refresh token must be unchanged when not rotated, got %q", persisted.RefreshToken)
	}
}

func TestFresh_RotatedRefreshTokenPersisted(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	endpoint.body = `{"access_token":"new_access","token_type":"Bearer","expires_in":3600,"refresh_token":"r2"}`
	rec := account.Record{
		AccessToken:     "old",
		RefreshToken:    "r1",
		ExpiryTimestamp: time.Now().Add(-time.Minute).Unix(),
	}
	r, store := newTestRefresher(t, rec, endpoint)

	if _, err := r.Fresh(context.Background()); err != nil {
		t.Fatalf("fresh: %v", err)
	}
	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if persisted.RefreshToken != "r2" {
		t.Errorf("expected rotated refresh token persisted, got %q", persisted.RefreshToken)
	}
}

func TestFresh_MissingFields(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	tests := []struct {
		name string
		rec  account.Record
	}{
		{name: "no access token", rec: account.Record{RefreshToken: "r"}},
		{name: "no refresh token", rec: account.Record{AccessToken: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRefresher(t, tt.rec, endpoint)
			_, err := r.Fresh(context.Background())
			if !errors.Is(err, account.ErrMissingFields) {
				t.Fatalf("expected ErrMissingFields, got %v", err)
			}
		})
	}
	if n := endpoint.calls.Load(); n != 0 {
		t.Errorf("missing fields must not reach the token endpoint, got %d calls", n)
	}
}

func TestFresh_AccountFileMissing(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	store := account.NewStore(filepath.Join(t.TempDir(), "missing.json"))
	cfg := &oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: endpoint.srv.URL}}
	r := NewRefresher(store, cfg)

	_, err := r.Fresh(context.Background())
	if !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFresh_RejectedGrant(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	endpoint.status = http.StatusBadRequest
	endpoint.body = `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`
	rec := account.Record{
		AccessToken:     "old",
		RefreshToken:    "r",
		ExpiryTimestamp: time.Now().Add(-time.Minute).Unix(),
	}
	r, store := newTestRefresher(t, rec, endpoint)

	_, err := r.Fresh(context.Background())
	if !errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("expected ErrRefreshRejected, got %v", err)
	}

	// A rejected grant must not clobber the stored record.
	persisted, loadErr := store.Load()
	if loadErr != nil {
		t.Fatalf("load: %v", loadErr)
	}
	if persisted.AccessToken != "old" {
		t.Errorf("stored record must be untouched, got %+v", persisted)
	}
}

func TestFresh_TransientFailureIsNotRejection(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	endpoint.status = http.StatusServiceUnavailable
	endpoint.body = `{"error":"temporarily_unavailable"}`
	rec := account.Record{
		AccessToken:     "old",
		RefreshToken:    "r",
		ExpiryTimestamp: time.Now().Add(-time.Minute).Unix(),
	}
	r, _ := newTestRefresher(t, rec, endpoint)

	_, err := r.Fresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("transient failure misclassified as rejection: %v", err)
	}
}

func TestFresh_ConcurrentCallersRefreshOnce(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	rec := account.Record{
		AccessToken:     "old",
		RefreshToken:    "r",
		ExpiryTimestamp: time.Now().Add(-time.Minute).Unix(),
	}
	r, _ := newTestRefresher(t, rec, endpoint)

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Fresh(context.Background())
			if err != nil {
				t.Errorf("fresh: %v", err)
				return
			}
			if got.AccessToken != "new_access" {
				t.Errorf("expected refreshed token, got %q", got.AccessToken)
			}
		}()
	}
	wg.Wait()

	if n := endpoint.calls.Load(); n != 1 {
		t.Errorf("expected exactly one exchange for %d concurrent callers, got %d", callers, n)
	}
}

func TestFresh_SecondCallAfterRefreshDoesNotRefreshAgain(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	rec := account.Record{
		AccessToken:     "old",
		RefreshToken:    "r",
		ExpiryTimestamp: time.Now().Add(-time.Minute).Unix(),
	}
	r, _ := newTestRefresher(t, rec, endpoint)

	for i := 0; i < 2; i++ {
		if _, err := r.Fresh(context.Background()); err != nil {
			t.Fatalf("fresh call %d: %v", i+1, err)
		}
	}
	if n := endpoint.calls.Load(); n != 1 {
		t.Errorf("expected one exchange across repeated calls, got %d", n)
	}
}

func TestIsPermanentRefreshError(t *testing.T) {
	tests := []struct {
		name      string
		errText   string
		permanent bool
	}{
		{name: "invalid grant", errText: `oauth2: cannot fetch token: 400 Bad Request {"error":"invalid_grant"}`, permanent: true},
		{name: "revoked", errText: "token has been expired or revoked", permanent: true},
		{name: "timeout", errText: "context deadline exceeded", permanent: false},
		{name: "temporary", errText: "temporarily_unavailable", permanent: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isPermanentRefreshError(errors.New(tt.errText))
			if got != tt.permanent {
				t.Fatalf("expected %v, got %v", tt.permanent, got)
			}
		})
	}
}
