package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashiqtasdid/pegasus-sub000/internal/config"
	"github.com/ashiqtasdid/pegasus-sub000/internal/repository/artifact"
	projectrepo "github.com/ashiqtasdid/pegasus-sub000/internal/repository/project"
)

type stores struct {
	projects  projectrepo.Store
	artifacts artifact.Store
}

func (s *stores) Close() error {
	if s == nil || s.projects == nil {
		return nil
	}
	return s.projects.Close()
}

func initStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	var base projectrepo.Store
	if dsn := cfg.Store.DatabaseURL; dsn != "" {
		pg, err := projectrepo.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("project store: %w", err)
		}
		logger.Info("project store: postgres")
		base = pg
	} else {
		logger.Info("project store: file", "path", cfg.Store.StatePath)
		base = projectrepo.NewFileStore(cfg.Store.StatePath)
	}
	projects, err := projectrepo.NewCachedStore(base, cfg.Store.CacheSize)
	if err != nil {
		return nil, errors.Join(err, base.Close())
	}

	artifacts, err := newArtifactStore(cfg.Artifact, logger)
	if err != nil {
		return nil, errors.Join(err, projects.Close())
	}
	return &stores{projects: projects, artifacts: artifacts}, nil
}

func newArtifactStore(cfg config.ArtifactConfig, logger *slog.Logger) (artifact.Store, error) {
	if cfg.S3Enabled() {
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("artifact s3 store: %w", err)
		}
		logger.Info("artifact store: s3", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
		return s3, nil
	}
	local, err := artifact.NewLocalStore(cfg.Dir, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("artifact local store: %w", err)
	}
	logger.Info("artifact store: local", "dir", cfg.Dir)
	return local, nil
}
