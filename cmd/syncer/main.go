package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"insight_sync/internal/api"
	"insight_sync/internal/config"
	"insight_sync/internal/dispatcher"
	"insight_sync/internal/domain"
	"insight_sync/internal/scheduler"
	"insight_sync/internal/watcher"
	"insight_sync/internal/workspace"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cmd := &cli.Command{
		Name:  "syncer",
		Usage: "Synchronize insight repositories into the database, search index and blob storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("SYNCER_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the webhook server, task queue, watcher and resync scheduler",
				Action: withApp(serve),
			},
			{
				Name:      "sync",
				Usage:     "Sync one repository and print the published insight",
				ArgsUsage: "OWNER/REPO",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: string(domain.RepositoryTypeGitHub), Usage: "Repository type (GITHUB or FILE)"},
					&cli.StringFlag{Name: "path", Usage: "Local directory, syncs a FILE repository named after it"},
				},
				Action: withApp(syncOne),
			},
			{
				Name:   "resync",
				Usage:  "Re-sync every active insight and refresh user profiles",
				Action: withApp(resyncAll),
			},
			{
				Name:      "delete",
				Usage:     "Unpublish an insight",
				ArgsUsage: "OWNER/REPO",
				Action:    withApp(deleteOne),
			},
			{
				Name:      "publish-draft",
				Usage:     "Commit a draft to its GitHub repository and re-sync it",
				ArgsUsage: "DRAFT.json",
				Action:    withApp(publishDraft),
			},
			{
				Name:      "rollback",
				Usage:     "Restore a GitHub repository to an earlier ref as a new commit",
				ArgsUsage: "OWNER/REPO REF",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "author-name", Required: true},
					&cli.StringFlag{Name: "author-email", Required: true},
				},
				Action: withApp(rollback),
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("syncer failed", "error", err)
		os.Exit(1)
	}
}

type appAction func(ctx context.Context, cmd *cli.Command, a *app) error

// withApp loads the configuration and wires the services before running fn.
func withApp(fn appAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := config.Load(cmd.String("config"))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger := setupLogger(cfg.Log)
		slog.SetDefault(logger)

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, cmd, a)
	}
}

func serve(ctx context.Context, _ *cli.Command, a *app) error {
	cfg, logger := a.cfg, a.logger

	queue := dispatcher.New(a.sync, cfg.Sync, logger)

	for _, path := range cfg.Seed.Paths {
		task := domain.FileTaskForPath(path)
		if _, err := queue.Enqueue(task); err != nil {
			logger.Warn("failed to seed repository", "path", path, "error", err)
		}
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Address(),
		Handler: api.NewRouter(ctx, api.Deps{
			Queue:         queue,
			Syncer:        a.sync,
			Resyncer:      a.resync,
			WebhookSecret: cfg.GitHub.WebhookSecret,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Filesystem.Watch {
		w := watcher.New(cfg.Filesystem.Root, cfg.Filesystem.Debounce, queue, logger)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if cfg.Resync.Interval > 0 {
		sched := scheduler.NewScheduler(a.resync, cfg.Resync.Interval, cfg.Resync.Interval, logger)
		g.Go(func() error {
			if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	logger.Info("starting insight syncer",
		"workers", cfg.Sync.Workers,
		"github", cfg.GitHub.Enabled,
		"watch", cfg.Filesystem.Watch,
		"resync_interval", cfg.Resync.Interval,
		"seeded", len(cfg.Seed.Paths),
	)

	err := g.Wait()

	// Jobs must stop before withApp closes the stores they write to.
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.ShutdownTimeout)
	defer cancel()
	if drainErr := queue.Shutdown(drainCtx); drainErr != nil {
		logger.Error("failed to drain sync queue", "error", drainErr)
	}
	return err
}

func syncOne(ctx context.Context, cmd *cli.Command, a *app) error {
	var task domain.SyncTask
	if path := cmd.String("path"); path != "" {
		task = domain.FileTaskForPath(path)
	} else {
		owner, repo, err := splitFullName(cmd.Args().First())
		if err != nil {
			return err
		}
		task = domain.SyncTask{
			RepositoryType: domain.RepositoryType(strings.ToUpper(cmd.String("type"))),
			Owner:          owner,
			Repo:           repo,
		}
	}
	task.Refresh = true

	insight, err := a.sync.Sync(ctx, task)
	if err != nil {
		return err
	}
	if insight == nil {
		a.logger.Info("repository skipped, manifest not found", "full_name", task.FullName())
		return nil
	}
	return printJSON(insight)
}

func resyncAll(ctx context.Context, _ *cli.Command, a *app) error {
	stats, err := a.resync.ResyncAll(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func deleteOne(ctx context.Context, cmd *cli.Command, a *app) error {
	owner, repo, err := splitFullName(cmd.Args().First())
	if err != nil {
		return err
	}
	return a.sync.Delete(ctx, owner+"/"+repo)
}

func publishDraft(ctx context.Context, cmd *cli.Command, a *app) error {
	if a.draft == nil {
		return errGitHubDisabled
	}

	data, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("read draft: %w", err)
	}
	var draft domain.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return fmt.Errorf("parse draft: %w", err)
	}

	insight, err := a.draft.Publish(ctx, &draft)
	if err != nil {
		return err
	}
	return printJSON(insight)
}

func rollback(ctx context.Context, cmd *cli.Command, a *app) error {
	if a.draft == nil {
		return errGitHubDisabled
	}

	owner, repo, err := splitFullName(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	task := domain.SyncTask{RepositoryType: domain.RepositoryTypeGitHub, Owner: owner, Repo: repo}
	author := workspace.Author{Name: cmd.String("author-name"), Email: cmd.String("author-email")}

	insight, err := a.draft.Rollback(ctx, task, cmd.Args().Get(1), author)
	if err != nil {
		return err
	}
	return printJSON(insight)
}

func splitFullName(fullName string) (string, string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("expected OWNER/REPO, got %q", fullName)
	}
	return strings.ToLower(owner), strings.ToLower(repo), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
