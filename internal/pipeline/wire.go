package pipeline

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/forgebay/go-build-backend/internal/artifact"
	"github.com/forgebay/go-build-backend/internal/config"
	"github.com/forgebay/go-build-backend/internal/deploy"
	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/generate"
	"github.com/forgebay/go-build-backend/internal/llm"
	"github.com/forgebay/go-build-backend/internal/policy"
	"github.com/forgebay/go-build-backend/internal/repo"
	"github.com/forgebay/go-build-backend/internal/sanitize"
	"github.com/forgebay/go-build-backend/internal/services"
)

// recordRepo adapts the repository free functions to services.RecordRepo,
// mirroring the shim the HTTP router uses.
type recordRepo struct{}

func (recordRepo) GetRecord(ctx context.Context, db *gorm.DB, ns, key string) (*domain.Record, error) {
	return repo.GetRecord(ctx, db, ns, key)
}

func (recordRepo) PutRecord(ctx context.Context, db *gorm.DB, ns, key, value string) (*domain.Record, error) {
	return repo.PutRecord(ctx, db, ns, key, value)
}

func (recordRepo) DeleteRecord(ctx context.Context, db *gorm.DB, ns, key string) (bool, error) {
	return repo.DeleteRecord(ctx, db, ns, key)
}

func (recordRepo) ListRecords(ctx context.Context, db *gorm.DB, ns string) ([]domain.Record, error) {
	return repo.ListRecords(ctx, db, ns)
}

func (recordRepo) ListRecordsByPrefix(ctx context.Context, db *gorm.DB, ns, prefix string) ([]domain.Record, error) {
	return repo.ListRecordsByPrefix(ctx, db, ns, prefix)
}

// FromConfig assembles a Coordinator with every pipeline stage wired from
// configuration: provider client, request screening, generation, artifact
// hardening and scanning, and the pages publisher.
func FromConfig(db *gorm.DB, cfg config.Config, logger zerolog.Logger) (*Coordinator, error) {
	client, err := llm.New(cfg.Generation.Model, llm.Config{
		APIKey:  cfg.Generation.APIKey,
		Timeout: cfg.Generation.Timeout,
	})
	if err != nil {
		return nil, err
	}

	store := services.NewStoreService(db, recordRepo{})
	if cfg.MaxValueBytes > 0 {
		store.MaxValueBytes = cfg.MaxValueBytes
	}

	return &Coordinator{
		Store:      store,
		Sanitizer:  sanitize.New(cfg.Pipeline.MaxRequestLen),
		Classifier: policy.New(client, logger),
		Builder:    generate.NewBuilder(client, logger, cfg.Generation.MaxTokens, cfg.Generation.Timeout),
		Scanner:    artifact.NewScanner(hostOf(cfg.Pipeline.DataAPIBaseURL)),
		Synth:      artifact.NewSynthesizer(cfg.Pipeline.DataAPIBaseURL),
		Publisher:  deploy.NewPagesPublisher(cfg.Deploy.GitHubToken, cfg.Deploy.GitHubRepo, cfg.Deploy.PagesBaseURL, logger),
		Log:        logger,
		Owner:      cfg.Pipeline.OwnerUsername,
		DailyCap:   cfg.Pipeline.DailyBuildCap,
	}, nil
}

// hostOf extracts the host component of the data-plane base URL for the
// scanner's fetch allowlist.
func hostOf(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return u.Host
}
