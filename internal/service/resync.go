package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
)

// ResyncService re-runs the sync for every active insight and refreshes the
// GitHub profile of every linked user.
type ResyncService struct {
	syncer   Syncer
	insights InsightStore
	users    UserStore
	profiles ProfileSource
	logger   *slog.Logger
	config   config.ResyncConfig
}

// NewResyncService accepts a nil profiles source, in which case user
// profiles are left alone.
func NewResyncService(
	syncer Syncer,
	insights InsightStore,
	users UserStore,
	profiles ProfileSource,
	logger *slog.Logger,
	cfg config.ResyncConfig,
) *ResyncService {
	if cfg.InsightConcurrency < 1 {
		cfg.InsightConcurrency = 1
	}
	if cfg.UserConcurrency < 1 {
		cfg.UserConcurrency = 1
	}
	return &ResyncService{
		syncer:   syncer,
		insights: insights,
		users:    users,
		profiles: profiles,
		logger:   logger.With("component", "resync"),
		config:   cfg,
	}
}

// ResyncAll never stops on a single failure; failures are counted in the
// returned stats. It only errors when the work lists cannot be loaded.
func (s *ResyncService) ResyncAll(ctx context.Context) (*domain.ResyncStats, error) {
	startTime := time.Now()
	stats := &domain.ResyncStats{}

	if err := s.resyncInsights(ctx, stats); err != nil {
		return nil, err
	}
	if err := s.refreshProfiles(ctx, stats); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)
	s.logger.Info("resync completed",
		"insights", stats.Insights,
		"insights_failed", stats.InsightsFailed,
		"users", stats.Users,
		"users_failed", stats.UsersFailed,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (s *ResyncService) resyncInsights(ctx context.Context, stats *domain.ResyncStats) error {
	records, err := s.insights.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list insights: %w", err)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.InsightConcurrency)

	for _, rec := range records {
		g.Go(func() error {
			task, err := domain.TaskFromCoordinates(rec.RepositoryData)
			if err == nil {
				_, err = s.syncer.Sync(gctx, task)
			}
			if err != nil {
				failed.Add(1)
				s.logger.Error("failed to resync insight",
					"insight_id", rec.ID,
					"full_name", rec.InsightName,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Insights = len(records)
	stats.InsightsFailed = int(failed.Load())
	return nil
}

func (s *ResyncService) refreshProfiles(ctx context.Context, stats *domain.ResyncStats) error {
	if s.profiles == nil {
		return nil
	}

	users, err := s.users.ListWithGitHubLogin(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.UserConcurrency)

	for _, u := range users {
		g.Go(func() error {
			if err := s.refreshProfile(gctx, u); err != nil {
				failed.Add(1)
				s.logger.Error("failed to refresh user profile",
					"user_id", u.ID,
					"github_login", u.GitHubLogin,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Users = len(users)
	stats.UsersFailed = int(failed.Load())
	return nil
}

func (s *ResyncService) refreshProfile(ctx context.Context, u domain.User) error {
	profile, err := s.profiles.GetProfile(ctx, u.GitHubLogin)
	if err != nil {
		return err
	}
	if profile.DisplayName != "" {
		u.DisplayName = profile.DisplayName
	}
	if profile.AvatarURL != "" {
		u.AvatarURL = profile.AvatarURL
	}
	return s.users.UpdateProfile(ctx, &u)
}
