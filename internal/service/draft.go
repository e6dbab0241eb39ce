package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"insight_sync/internal/domain"
	"insight_sync/internal/storage/blob"
	"insight_sync/internal/workspace"
)

// DraftService writes changes back to the source repository and then
// re-syncs it.
type DraftService struct {
	opener RemoteOpener
	blobs  BlobStore
	syncer Syncer
	logger *slog.Logger
}

func NewDraftService(opener RemoteOpener, blobs BlobStore, syncer Syncer, logger *slog.Logger) *DraftService {
	return &DraftService{
		opener: opener,
		blobs:  blobs,
		syncer: syncer,
		logger: logger.With("component", "draft"),
	}
}

// Publish applies the staged changes of a draft, commits them as the draft
// author and pushes.
func (s *DraftService) Publish(ctx context.Context, draft *domain.Draft) (*domain.Insight, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("validate draft: %w", err)
	}
	logger := s.logger.With("draft", draft.Key, "full_name", draft.Task.FullName())

	ws, cred, err := s.opener.OpenWritable(ctx, draft.Task)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			logger.Warn("failed to clean up workspace", "error", err)
		}
	}()

	for _, change := range draft.Changes {
		if err := s.apply(ctx, ws, draft.Key, change); err != nil {
			return nil, fmt.Errorf("%s %s: %w", change.Action, change.Path, err)
		}
	}

	author := workspace.Author{Name: draft.Author.Name, Email: draft.Author.Email}
	if err := s.commitAndPush(ctx, ws, cred, draft.Message, author, logger); err != nil {
		return nil, err
	}

	return s.resync(ctx, draft.Task)
}

func (s *DraftService) apply(ctx context.Context, ws *workspace.Workspace, draftKey string, change domain.FileChange) error {
	switch change.Action {
	case domain.ChangeAdd, domain.ChangeModify:
		return s.writeStaged(ctx, ws, draftKey, change)
	case domain.ChangeRename:
		if err := ws.Rename(change.PreviousPath, change.Path); err != nil {
			return err
		}
		if change.FileID != "" {
			return s.writeStaged(ctx, ws, draftKey, change)
		}
		return nil
	case domain.ChangeDelete:
		return ws.Delete(change.Path)
	default:
		return fmt.Errorf("unsupported action %q", change.Action)
	}
}

func (s *DraftService) writeStaged(ctx context.Context, ws *workspace.Workspace, draftKey string, change domain.FileChange) error {
	data, err := s.blobs.Get(ctx, blob.DraftFileKey(draftKey, change.FileID))
	if err != nil {
		return fmt.Errorf("load staged file %s: %w", change.FileID, err)
	}
	return ws.WriteFile(change.Path, data)
}

// Rollback restores the tree of ref as a new commit on top of the current
// branch tip.
func (s *DraftService) Rollback(ctx context.Context, task domain.SyncTask, ref string, author workspace.Author) (*domain.Insight, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("validate task: %w", err)
	}
	if ref == "" {
		return nil, errors.New("rollback ref is required")
	}
	logger := s.logger.With("full_name", task.FullName(), "ref", ref)

	ws, cred, err := s.opener.OpenWritable(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			logger.Warn("failed to clean up workspace", "error", err)
		}
	}()

	tip, err := ws.Head(ctx)
	if err != nil {
		return nil, err
	}
	if err := ws.CheckoutRef(ctx, ref, cred); err != nil {
		return nil, fmt.Errorf("checkout %s: %w", ref, err)
	}
	if err := ws.ResetSoft(ctx, tip); err != nil {
		return nil, fmt.Errorf("reset to %s: %w", tip, err)
	}

	if err := s.commitAndPush(ctx, ws, cred, "Rollback to "+ref, author, logger); err != nil {
		return nil, err
	}

	return s.resync(ctx, task)
}

func (s *DraftService) commitAndPush(
	ctx context.Context,
	ws *workspace.Workspace,
	cred workspace.Credential,
	message string,
	author workspace.Author,
	logger *slog.Logger,
) error {
	commit, err := ws.Commit(ctx, message, author)
	if errors.Is(err, workspace.ErrNothingToCommit) {
		logger.Info("no changes to commit")
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if err := ws.Push(ctx, cred); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	logger.Info("pushed changes", "commit", commit, "author", author.String())
	return nil
}

func (s *DraftService) resync(ctx context.Context, task domain.SyncTask) (*domain.Insight, error) {
	task.Refresh = true
	task.Updated = true
	return s.syncer.Sync(ctx, task)
}
