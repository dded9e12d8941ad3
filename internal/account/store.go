// Package account persists the OAuth credential record for the single
// provisioned Google account. Two on-disk shapes are accepted: the nested
// shape written by Antigravity ("token": {...}) and the flat shape written by
// older login tools. Records are always written back in the flat shape.
package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// ErrNotFound indicates the account file does not exist. There is no
	// bootstrap path here; the file is provisioned by an external login flow.
	ErrNotFound = errors.New("account file not found")

	// ErrMissingFields indicates a loaded record lacks the access or refresh
	// token needed to authorize or renew.
	ErrMissingFields = errors.New("missing access_token or refresh_token")
)

// Record is the canonical credential record.
type Record struct {
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	ExpiryTimestamp int64  `json:"expiry_timestamp"`
	ProjectID       string `json:"project_id,omitempty"`
}

// ExpiresAt returns the absolute expiry of the access token.
func (r Record) ExpiresAt() time.Time {
	return time.Unix(r.ExpiryTimestamp, 0)
}

// Usable reports whether the record carries both tokens.
func (r Record) Usable() bool {
	return r.AccessToken != "" && r.RefreshToken != ""
}

// Store reads and writes the account file. All access is serialized so a
// reader never observes a half-written record.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store bound to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and normalizes the account file.
func (s *Store) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return Record{}, fmt.Errorf("failed to read account file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return Record{}, fmt.Errorf("account file %s is not valid JSON", s.path)
	}
	return Normalize(data), nil
}

// Normalize resolves either legacy shape into a canonical Record. It is total:
// missing keys yield zero values, never an error.
func Normalize(raw []byte) Record {
	root := gjson.ParseBytes(raw)
	src := root
	if tok := root.Get("token"); tok.IsObject() {
		src = tok
	}

	rec := Record{
		AccessToken:  src.Get("access_token").String(),
		RefreshToken: src.Get("refresh_token").String(),
	}

	if expiry := src.Get("expiry_timestamp"); expiry.Exists() {
		rec.ExpiryTimestamp = expiry.Int()
	} else if ts := src.Get("timestamp"); ts.Exists() && src.Get("expires_in").Exists() {
		// Flat legacy shape: issuance timestamp in milliseconds plus lifetime
		// in seconds.
		rec.ExpiryTimestamp = ts.Int()/1000 + src.Get("expires_in").Int()
	}

	if pid := src.Get("project_id"); pid.Exists() {
		rec.ProjectID = pid.String()
	} else {
		rec.ProjectID = root.Get("project_id").String()
	}
	return rec
}

// Save overwrites the account file with the canonical flat shape. The write
// goes through a temp file and rename so concurrent readers see either the
// old or the new record, never a partial one.
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, ".account-*.tmp")
	if err != nil {
		return err
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tempPath, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return err
	}

	success = true
	return nil
}
