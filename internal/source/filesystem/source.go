// Package filesystem syncs insights from directories on the local disk.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"insight_sync/internal/domain"
	"insight_sync/internal/workspace"
)

const ExternalIDPrefix = "FILE:"

var ErrNoRoot = errors.New("task has no path and no filesystem root is configured")

// Source reads repositories in place. A task either names its directory in
// Path or lives at {root}/{owner}/{repo}.
type Source struct {
	root   string
	logger *slog.Logger
}

func New(root string, logger *slog.Logger) *Source {
	return &Source{
		root:   root,
		logger: logger.With("source", domain.RepositoryTypeFile),
	}
}

func (s *Source) Type() domain.RepositoryType {
	return domain.RepositoryTypeFile
}

// Dir resolves the directory a task refers to.
func (s *Source) Dir(task domain.SyncTask) (string, error) {
	if task.Path != "" {
		return task.Path, nil
	}
	if s.root == "" {
		return "", ErrNoRoot
	}
	return filepath.Join(s.root, task.Owner, task.Repo), nil
}

func (s *Source) Open(_ context.Context, task domain.SyncTask) (*workspace.Workspace, *domain.Insight, error) {
	dir, err := s.Dir(task)
	if err != nil {
		return nil, nil, err
	}
	ws, err := workspace.OpenLocal(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dir, err)
	}

	fullName := task.FullName()
	insight := &domain.Insight{
		ExternalID: ExternalIDPrefix + fullName,
		FullName:   fullName,
		Namespace:  task.Owner,
		Name:       task.Repo,
		Repository: domain.Repository{
			Type:             domain.RepositoryTypeFile,
			URL:              "file://" + filepath.ToSlash(ws.Root()),
			ExternalID:       fullName,
			ExternalFullName: fullName,
			Owner:            domain.Owner{Login: task.Owner},
		},
	}

	s.logger.Debug("opened local repository", "full_name", fullName, "dir", ws.Root())
	return ws, insight, nil
}

// Contributors is always empty; local directories carry no commit authors.
func (s *Source) Contributors(context.Context, domain.SyncTask) ([]string, error) {
	return nil, nil
}

func (s *Source) AfterPublish(context.Context, domain.SyncTask, *domain.Insight) error {
	return nil
}
