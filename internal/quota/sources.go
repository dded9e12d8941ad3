package quota

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/pysugar/cloudcode-quota/internal/auth/token"
	"github.com/pysugar/cloudcode-quota/internal/upstream"
)

// Provider names registered with the Fetcher.
const (
	ProviderCloudCode = "cloudcode"
	ProviderGLM       = "glm"
)

// CloudCodeSource fetches the CloudCode model quota. Every fetch goes
// through the refresher, so the access token is renewed transparently when
// it is close to expiry.
type CloudCodeSource struct {
	Refresher *token.Refresher
	Client    *upstream.CloudCodeClient
}

func (s *CloudCodeSource) FetchQuota(ctx context.Context) ([]byte, error) {
	rec, err := s.Refresher.Fresh(ctx)
	if err != nil {
		return nil, err
	}
	projectID := rec.ProjectID
	if projectID == "" {
		// Older credential files predate the project field. Discovery is
		// best effort: the models call works without a project for most
		// accounts.
		projectID, err = s.Client.LoadCodeAssist(ctx, rec.AccessToken)
		if err != nil {
			log.Warnf("quota: project discovery failed, fetching without project: %v", err)
			projectID = ""
		}
	}
	return s.Client.FetchAvailableModels(ctx, rec.AccessToken, projectID)
}

// GLMSource fetches the GLM coding-plan quota with the static monitor token.
type GLMSource struct {
	Client *upstream.ZaiClient
}

func (s *GLMSource) FetchQuota(ctx context.Context) ([]byte, error) {
	return s.Client.QuotaLimit(ctx)
}
