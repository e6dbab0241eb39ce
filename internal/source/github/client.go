package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	gh "github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
)

// ErrStillComputing is returned when GitHub kept answering 202 for
// contributor statistics after every retry.
var ErrStillComputing = errors.New("github is still computing repository statistics")

// Client wraps the go-github client with the calls the sync needs.
type Client struct {
	api    *gh.Client
	retry  config.RetryConfig
	logger *slog.Logger
}

func NewClient(cfg config.GitHubConfig, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
		httpClient.Timeout = cfg.Timeout
	}

	api := gh.NewClient(httpClient)
	if cfg.BaseURL != "" {
		uploadURL := cfg.UploadURL
		if uploadURL == "" {
			uploadURL = cfg.BaseURL
		}
		var err error
		api, err = api.WithEnterpriseURLs(cfg.BaseURL, uploadURL)
		if err != nil {
			return nil, fmt.Errorf("configure github urls: %w", err)
		}
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	return &Client{
		api:    api,
		retry:  cfg.Retry,
		logger: logger.With("component", "github"),
	}, nil
}

func (c *Client) Repository(ctx context.Context, owner, repo string) (*gh.Repository, error) {
	r, _, err := c.api.Repositories.Get(ctx, owner, repo)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("repository %s/%s: %w", owner, repo, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get repository %s/%s: %w", owner, repo, err)
	}
	return r, nil
}

// ContributorLogins reads the contributor statistics of a repository and
// returns the author logins. GitHub answers 202 while it computes the
// statistics; those calls are retried with a linearly growing delay.
func (c *Client) ContributorLogins(ctx context.Context, owner, repo string) ([]string, error) {
	var stats []*gh.ContributorStats
	err := retry.Do(
		func() error {
			var err error
			stats, _, err = c.api.Repositories.ListContributorsStats(ctx, owner, repo)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retry.MaxAttempts)),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n+1) * c.retry.Delay
		}),
		retry.RetryIf(isAccepted),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("contributor statistics not ready, retrying",
				"repository", owner+"/"+repo,
				"attempt", n+1,
			)
		}),
	)
	if err != nil {
		if isAccepted(err) {
			return nil, fmt.Errorf("contributor statistics of %s/%s: %w", owner, repo, ErrStillComputing)
		}
		return nil, fmt.Errorf("contributor statistics of %s/%s: %w", owner, repo, err)
	}

	logins := make([]string, 0, len(stats))
	for _, stat := range stats {
		if login := stat.GetAuthor().GetLogin(); login != "" {
			logins = append(logins, login)
		}
	}
	return logins, nil
}

// UpdateMetadata sets the repository description and replaces its topics.
func (c *Client) UpdateMetadata(ctx context.Context, owner, repo, description string, topics []string) error {
	if _, _, err := c.api.Repositories.Edit(ctx, owner, repo, &gh.Repository{
		Description: gh.String(description),
	}); err != nil {
		return fmt.Errorf("edit repository %s/%s: %w", owner, repo, err)
	}
	if topics == nil {
		topics = []string{}
	}
	if _, _, err := c.api.Repositories.ReplaceAllTopics(ctx, owner, repo, topics); err != nil {
		return fmt.Errorf("replace topics of %s/%s: %w", owner, repo, err)
	}
	return nil
}

// GetProfile returns the public profile of a GitHub user.
func (c *Client) GetProfile(ctx context.Context, login string) (*domain.User, error) {
	u, _, err := c.api.Users.Get(ctx, login)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("user %s: %w", login, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user %s: %w", login, err)
	}
	return &domain.User{
		UserName:    u.GetLogin(),
		Email:       u.GetEmail(),
		DisplayName: u.GetName(),
		GitHubLogin: u.GetLogin(),
		AvatarURL:   u.GetAvatarURL(),
	}, nil
}

func isAccepted(err error) bool {
	var accepted *gh.AcceptedError
	return errors.As(err, &accepted)
}

func isNotFound(err error) bool {
	var resp *gh.ErrorResponse
	return errors.As(err, &resp) && resp.Response != nil && resp.Response.StatusCode == http.StatusNotFound
}
