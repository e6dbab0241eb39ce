// Package github syncs insights from GitHub repositories.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	gh "github.com/google/go-github/v62/github"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
	"insight_sync/internal/workspace"
)

const ExternalIDPrefix = "GITHUB:"

// API is the part of Client the backend uses.
type API interface {
	Repository(ctx context.Context, owner, repo string) (*gh.Repository, error)
	ContributorLogins(ctx context.Context, owner, repo string) ([]string, error)
	UpdateMetadata(ctx context.Context, owner, repo, description string, topics []string) error
}

// Source clones repositories over https with the configured token.
type Source struct {
	api          API
	token        string
	updateSource bool
	options      workspace.Options
	logger       *slog.Logger
}

func New(api API, cfg config.GitHubConfig, options workspace.Options, logger *slog.Logger) *Source {
	logger = logger.With("source", domain.RepositoryTypeGitHub)
	if options.Logger == nil {
		options.Logger = logger
	}
	return &Source{
		api:          api,
		token:        cfg.Token,
		updateSource: cfg.UpdateSource,
		options:      options,
		logger:       logger,
	}
}

func (s *Source) Type() domain.RepositoryType {
	return domain.RepositoryTypeGitHub
}

func (s *Source) credential() workspace.Credential {
	return workspace.Credential{Token: s.token}
}

func (s *Source) Open(ctx context.Context, task domain.SyncTask) (*workspace.Workspace, *domain.Insight, error) {
	repo, err := s.api.Repository(ctx, task.Owner, task.Repo)
	if err != nil {
		return nil, nil, err
	}

	ws, err := workspace.OpenRemote(ctx, repo.GetCloneURL(), s.credential(), s.options)
	if err != nil {
		return nil, nil, fmt.Errorf("clone %s: %w", task.FullName(), err)
	}
	return ws, toInsight(task, repo), nil
}

func (s *Source) OpenWritable(ctx context.Context, task domain.SyncTask) (*workspace.Workspace, workspace.Credential, error) {
	repo, err := s.api.Repository(ctx, task.Owner, task.Repo)
	if err != nil {
		return nil, workspace.Credential{}, err
	}
	if repo.GetArchived() {
		return nil, workspace.Credential{}, fmt.Errorf("repository %s is archived", task.FullName())
	}

	cred := s.credential()
	ws, err := workspace.OpenRemote(ctx, repo.GetCloneURL(), cred, s.options)
	if err != nil {
		return nil, workspace.Credential{}, fmt.Errorf("clone %s: %w", task.FullName(), err)
	}
	return ws, cred, nil
}

func (s *Source) Contributors(ctx context.Context, task domain.SyncTask) ([]string, error) {
	return s.api.ContributorLogins(ctx, task.Owner, task.Repo)
}

// AfterPublish pushes the manifest description and tags back to the
// repository when enabled.
func (s *Source) AfterPublish(ctx context.Context, task domain.SyncTask, insight *domain.Insight) error {
	if !s.updateSource {
		return nil
	}
	return s.api.UpdateMetadata(ctx, task.Owner, task.Repo, insight.Description, insight.Tags)
}

func toInsight(task domain.SyncTask, repo *gh.Repository) *domain.Insight {
	owner := repo.GetOwner()
	externalID := strconv.FormatInt(repo.GetID(), 10)

	return &domain.Insight{
		ExternalID:  ExternalIDPrefix + externalID,
		FullName:    task.FullName(),
		Namespace:   task.Owner,
		Name:        task.Repo,
		Description: repo.GetDescription(),
		Tags:        append([]string(nil), repo.Topics...),
		Repository: domain.Repository{
			Type:             domain.RepositoryTypeGitHub,
			URL:              repo.GetHTMLURL(),
			CloneURL:         repo.GetCloneURL(),
			ExternalID:       externalID,
			ExternalFullName: repo.GetFullName(),
			Owner: domain.Owner{
				Login:     owner.GetLogin(),
				AvatarURL: owner.GetAvatarURL(),
				Type:      owner.GetType(),
			},
			DefaultBranch: repo.GetDefaultBranch(),
			IsArchived:    repo.GetArchived(),
			IsReadOnly:    repo.GetArchived() || repo.GetDisabled(),
			StarCount:     repo.GetStargazersCount(),
			ForkCount:     repo.GetForksCount(),
			WatcherCount:  repo.GetSubscribersCount(),
		},
	}
}
