package quota

import (
	"context"
	"errors"
	"time"

	"github.com/pysugar/cloudcode-quota/internal/upstream"
)

// Service is the facade the HTTP layer talks to. It runs the fetcher and
// the per-provider shaper and folds forbidden upstream responses into the
// is_forbidden flag instead of an error, so the rest of the response can
// still render.
type Service struct {
	fetcher *Fetcher
}

func NewService(f *Fetcher) *Service {
	return &Service{fetcher: f}
}

// CloudCodeQuota returns the shaped CloudCode quota.
func (s *Service) CloudCodeQuota(ctx context.Context, showRelative bool) (Quota, error) {
	res, err := s.fetcher.Get(ctx, ProviderCloudCode)
	if err != nil {
		return s.quotaError(err)
	}
	q := ShapeCloudCode(res.Payload, showRelative)
	q.LastUpdated = res.FetchedAt.Unix()
	q.Stale = res.Stale
	return q, nil
}

// GLMQuota returns the shaped GLM coding-plan quota.
func (s *Service) GLMQuota(ctx context.Context) (Quota, error) {
	res, err := s.fetcher.Get(ctx, ProviderGLM)
	if err != nil {
		return s.quotaError(err)
	}
	q := ShapeGLM(ProcessQuotaLimit(res.Payload))
	q.LastUpdated = res.FetchedAt.Unix()
	q.Stale = res.Stale
	return q, nil
}

// HasProvider reports whether the named provider is registered.
func (s *Service) HasProvider(name string) bool {
	for _, p := range s.fetcher.Providers() {
		if p == name {
			return true
		}
	}
	return false
}

func (s *Service) quotaError(err error) (Quota, error) {
	if errors.Is(err, upstream.ErrForbidden) {
		return Quota{
			Models:      []Model{},
			LastUpdated: time.Now().Unix(),
			IsForbidden: true,
		}, nil
	}
	return Quota{}, err
}
