package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/OpenListTeam/tache"

	"insight_sync/internal/domain"
)

// Syncer runs one sync task.
type Syncer interface {
	Sync(ctx context.Context, task domain.SyncTask) (*domain.Insight, error)
}

// Job is a queued SyncTask.
type Job struct {
	tache.Base

	Task       domain.SyncTask
	EnqueuedAt time.Time

	syncer  Syncer
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	status string
	result *domain.Insight
}

func (j *Job) GetName() string {
	return "sync " + string(j.Task.RepositoryType) + " " + j.Task.FullName()
}

func (j *Job) GetStatus() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Result returns the published insight once the job succeeded.
func (j *Job) Result() *domain.Insight {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

func (j *Job) setStatus(status string, result *domain.Insight) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.result = result
}

func (j *Job) Run() error {
	ctx := j.Ctx()
	if ctx == nil {
		ctx = context.Background()
	}
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	j.setStatus("syncing", nil)
	startTime := time.Now()

	insight, err := j.syncer.Sync(ctx, j.Task)
	if err != nil {
		j.logger.Error("sync task failed",
			"job_id", j.GetID(),
			"repository_type", j.Task.RepositoryType,
			"owner", j.Task.Owner,
			"repo", j.Task.Repo,
			"path", j.Task.Path,
			"error", err,
		)
		j.setStatus("failed", nil)
		return err
	}

	switch {
	case insight == nil:
		j.setStatus("skipped: no manifest", nil)
	case insight.ID == "":
		j.setStatus("skipped: archived", insight)
	default:
		j.setStatus("published", insight)
	}
	j.logger.Debug("sync task finished", "job_id", j.GetID(), "duration", time.Since(startTime))
	return nil
}
