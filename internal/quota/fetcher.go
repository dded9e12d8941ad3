package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/pysugar/cloudcode-quota/internal/upstream"
)

// Source fetches one provider's raw quota payload.
type Source interface {
	FetchQuota(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) FetchQuota(ctx context.Context) ([]byte, error) { return f(ctx) }

// Result is a cached or freshly fetched payload. Stale marks a payload that
// was served because a refetch attempt failed.
type Result struct {
	Payload   []byte
	FetchedAt time.Time
	Stale     bool
}

type cacheEntry struct {
	payload   []byte
	fetchedAt time.Time
}

const (
	// DefaultWindow is the debounce window: reads within it reuse the last
	// fetched payload without touching the token or the upstream.
	DefaultWindow = time.Minute

	// DefaultWaitBudget bounds how long a caller waits on an in-flight fetch.
	DefaultWaitBudget = 30 * time.Second
)

// Fetcher debounces upstream quota calls per provider. At most one fetch
// per provider is in flight at a time; callers arriving during a fetch wait
// for and share its result.
type Fetcher struct {
	window     time.Duration
	waitBudget time.Duration
	now        func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	sources map[string]Source
	entries map[string]cacheEntry

	// OnFetch, when set, is invoked after every successful upstream fetch.
	OnFetch func(provider string, payload []byte, fetchedAt time.Time)
}

// NewFetcher builds a Fetcher with the given debounce window. A window of
// zero or less falls back to DefaultWindow.
func NewFetcher(window time.Duration) *Fetcher {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Fetcher{
		window:     window,
		waitBudget: DefaultWaitBudget,
		now:        time.Now,
		sources:    make(map[string]Source),
		entries:    make(map[string]cacheEntry),
	}
}

// Register binds a provider name to its fetch source.
func (f *Fetcher) Register(provider string, src Source) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[provider] = src
}

// Providers returns the registered provider names.
func (f *Fetcher) Providers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.sources))
	for name := range f.sources {
		names = append(names, name)
	}
	return names
}

// Get returns the provider's payload, fetching from upstream only when the
// cached entry is missing or at least one window old. A failed refetch keeps
// the previous entry and serves it with Stale set, except for forbidden
// errors, which always propagate so the caller can flag the account.
func (f *Fetcher) Get(ctx context.Context, provider string) (Result, error) {
	f.mu.Lock()
	src, ok := f.sources[provider]
	if !ok {
		f.mu.Unlock()
		return Result{}, fmt.Errorf("unknown provider %q", provider)
	}
	if e, ok := f.entries[provider]; ok && f.now().Sub(e.fetchedAt) < f.window {
		f.mu.Unlock()
		return Result{Payload: e.payload, FetchedAt: e.fetchedAt}, nil
	}
	f.mu.Unlock()

	ch := f.group.DoChan(provider, func() (interface{}, error) {
		// A caller queued behind a completed flight re-checks the cache so a
		// just-stored payload is not immediately refetched.
		f.mu.Lock()
		if e, ok := f.entries[provider]; ok && f.now().Sub(e.fetchedAt) < f.window {
			f.mu.Unlock()
			return e, nil
		}
		f.mu.Unlock()

		// The flight runs on a detached context so one waiter's cancellation
		// cannot abort the fetch the remaining waiters share.
		fctx, cancel := context.WithTimeout(context.Background(), f.waitBudget)
		defer cancel()

		payload, err := src.FetchQuota(fctx)
		if err != nil {
			return nil, err
		}
		e := cacheEntry{payload: payload, fetchedAt: f.now()}
		f.mu.Lock()
		f.entries[provider] = e
		f.mu.Unlock()
		if f.OnFetch != nil {
			f.OnFetch(provider, payload, e.fetchedAt)
		}
		return e, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(f.waitBudget):
		return f.serveStale(provider, fmt.Errorf("%w: timed out waiting for in-flight fetch", upstream.ErrUnavailable))
	}

	if res.Err != nil {
		if errors.Is(res.Err, upstream.ErrForbidden) {
			return Result{}, res.Err
		}
		return f.serveStale(provider, res.Err)
	}
	e := res.Val.(cacheEntry)
	return Result{Payload: e.payload, FetchedAt: e.fetchedAt}, nil
}

// serveStale falls back to the previous cache entry when a refetch failed.
// Without one the original error surfaces.
func (f *Fetcher) serveStale(provider string, err error) (Result, error) {
	f.mu.Lock()
	e, ok := f.entries[provider]
	f.mu.Unlock()
	if !ok {
		return Result{}, err
	}
	log.Warnf("quota: %s fetch failed, serving stale payload from %s: %v",
		provider, e.fetchedAt.Format(time.RFC3339), err)
	return Result{Payload: e.payload, FetchedAt: e.fetchedAt, Stale: true}, nil
}
