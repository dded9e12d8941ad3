package main

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pysugar/cloudcode-quota/internal/account"
	"github.com/pysugar/cloudcode-quota/internal/api/handlers"
	"github.com/pysugar/cloudcode-quota/internal/auth/google"
	"github.com/pysugar/cloudcode-quota/internal/auth/token"
	"github.com/pysugar/cloudcode-quota/internal/config"
	"github.com/pysugar/cloudcode-quota/internal/history"
	"github.com/pysugar/cloudcode-quota/internal/quota"
	"github.com/pysugar/cloudcode-quota/internal/upstream"
	"github.com/pysugar/cloudcode-quota/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.Infof("quotad %s (%s, built %s)", version.Version, version.Commit, version.BuildTime)
	if google.IsUsingDefaultOAuthCredentials(cfg.ClientID, cfg.ClientSecret) {
		log.Debug("using built-in OAuth client credentials")
	}

	// Credential store and token refresher for CloudCode.
	store := account.NewStore(cfg.AccountFile)
	refresher := token.NewRefresher(store, google.OAuthConfig(cfg.ClientID, cfg.ClientSecret))

	fetcher := quota.NewFetcher(cfg.DebounceWindow())
	fetcher.Register(quota.ProviderCloudCode, &quota.CloudCodeSource{
		Refresher: refresher,
		Client:    upstream.NewCloudCodeClient(cfg.UserAgent),
	})

	// GLM is optional: only wired when the monitor token is configured.
	if cfg.ZaiAuthToken != "" {
		zai, err := upstream.NewZaiClient(cfg.ZaiBaseURL, cfg.ZaiAuthToken)
		if err != nil {
			log.Fatalf("Failed to configure GLM provider: %v", err)
		}
		fetcher.Register(quota.ProviderGLM, &quota.GLMSource{Client: zai})
	} else {
		log.Info("GLM provider disabled (ANTHROPIC_AUTH_TOKEN not set)")
	}

	// Snapshot history, optional as well.
	var recorder *history.Recorder
	if cfg.HistoryDB != "" {
		db, err := history.InitDB(cfg.HistoryDB)
		if err != nil {
			log.Fatalf("Failed to initialize history database: %v", err)
		}
		recorder = history.NewRecorder(db)
		fetcher.OnFetch = func(provider string, payload []byte, fetchedAt time.Time) {
			if err := recorder.Record(provider, payload, fetchedAt.Unix()); err != nil {
				log.Warnf("history: failed to record %s snapshot: %v", provider, err)
			}
		}
	}

	router := handlers.Router(quota.NewService(fetcher), recorder, time.Now())

	log.Infof("Listening on %s (debounce window %s)", cfg.Addr(), cfg.DebounceWindow())
	if err := http.ListenAndServe(cfg.Addr(), router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
