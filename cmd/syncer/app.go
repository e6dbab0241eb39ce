package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"insight_sync/internal/bootstrap"
	"insight_sync/internal/config"
	"insight_sync/internal/publisher"
	"insight_sync/internal/search"
	"insight_sync/internal/service"
	"insight_sync/internal/source/filesystem"
	"insight_sync/internal/source/github"
	"insight_sync/internal/storage/blob"
	"insight_sync/internal/storage/sqlstore"
	"insight_sync/internal/workspace"
)

var errGitHubDisabled = errors.New("github is disabled in the configuration")

// app holds the wired services shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	sync   *service.SyncService
	resync *service.ResyncService
	// draft is nil when GitHub is disabled.
	draft *service.DraftService

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	db, err := a.openDatabase(ctx)
	if err != nil {
		return err
	}

	index, err := a.openSearch(ctx)
	if err != nil {
		return err
	}

	blobs, err := a.openBlobs(ctx)
	if err != nil {
		return err
	}

	var rabbitMQ *publisher.RabbitMQ
	err = bootstrap.Retry(ctx, "rabbitmq", cfg.Bootstrap, logger, func(context.Context) error {
		var dialErr error
		rabbitMQ, dialErr = publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		return dialErr
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, rabbitMQ.Close)

	backends := []service.Backend{filesystem.New(cfg.Filesystem.Root, logger)}

	var (
		profiles service.ProfileSource
		ghSource *github.Source
	)
	if cfg.GitHub.Enabled {
		client, err := github.NewClient(cfg.GitHub, logger)
		if err != nil {
			return fmt.Errorf("create github client: %w", err)
		}
		ghSource = github.New(client, cfg.GitHub, workspace.Options{
			Committer: workspace.Author{Name: cfg.Committer.Name, Email: cfg.Committer.Email},
			Logger:    logger,
		}, logger)
		backends = append(backends, ghSource)
		profiles = client
	}

	a.sync = service.NewSyncService(backends, service.Deps{
		Index:     index,
		Insights:  sqlstore.NewInsightStore(db),
		Users:     sqlstore.NewUserStore(db),
		Counters:  sqlstore.NewCounterStore(db),
		Blobs:     blobs,
		Converter: rabbitMQ,
		TxManager: sqlstore.NewTransactionManager(db),
	}, logger, cfg.Sync)

	a.resync = service.NewResyncService(
		a.sync,
		sqlstore.NewInsightStore(db),
		sqlstore.NewUserStore(db),
		profiles,
		logger,
		cfg.Resync,
	)

	if ghSource != nil {
		a.draft = service.NewDraftService(ghSource, blobs, a.sync, logger)
	}
	return nil
}

func (a *app) openDatabase(ctx context.Context) (*sqlx.DB, error) {
	var db *sqlx.DB
	err := bootstrap.Retry(ctx, "database", a.cfg.Bootstrap, a.logger, func(context.Context) error {
		var openErr error
		db, openErr = sqlstore.Open(a.cfg.Database)
		return openErr
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	err = bootstrap.Retry(ctx, "database schema", a.cfg.Bootstrap, a.logger, func(context.Context) error {
		return sqlstore.Migrate(db)
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("connected to database", "driver", a.cfg.Database.Driver)
	return db, nil
}

func (a *app) openSearch(ctx context.Context) (service.SearchIndex, error) {
	switch a.cfg.Search.Driver {
	case config.SearchBleve:
		index, err := search.NewBleve(a.cfg.Search.Bleve.Path)
		if err != nil {
			return nil, fmt.Errorf("open bleve index: %w", err)
		}
		a.closers = append(a.closers, index.Close)
		return index, nil
	default:
		index := search.NewMeilisearch(a.cfg.Search.Meilisearch)
		if err := bootstrap.Retry(ctx, "meilisearch", a.cfg.Bootstrap, a.logger, index.EnsureIndex); err != nil {
			return nil, err
		}
		return index, nil
	}
}

func (a *app) openBlobs(ctx context.Context) (service.BlobStore, error) {
	switch a.cfg.Blob.Driver {
	case config.BlobFS:
		store, err := blob.NewFS(a.cfg.Blob.FS.Root)
		if err != nil {
			return nil, fmt.Errorf("open blob directory: %w", err)
		}
		return store, nil
	case config.BlobAzure:
		store, err := blob.NewAzure(a.cfg.Blob.Azure)
		if err != nil {
			return nil, fmt.Errorf("create azure client: %w", err)
		}
		if err := bootstrap.Retry(ctx, "azure blob", a.cfg.Bootstrap, a.logger, store.EnsureContainer); err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := blob.NewS3(a.cfg.Blob.S3)
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		return store, nil
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
