// Package dispatcher queues sync tasks and runs them on a bounded pool of
// workers. Failed tasks are logged and never retried.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/OpenListTeam/tache"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
)

// ErrClosed is returned by Enqueue once Shutdown has started.
var ErrClosed = errors.New("dispatcher is shut down")

const drainPollInterval = 20 * time.Millisecond

type Dispatcher struct {
	manager *tache.Manager[*Job]
	syncer  Syncer
	timeout time.Duration
	logger  *slog.Logger
	closed  atomic.Bool
}

func New(syncer Syncer, cfg config.SyncConfig, logger *slog.Logger) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		manager: tache.NewManager[*Job](tache.WithWorks(workers), tache.WithMaxRetry(0)),
		syncer:  syncer,
		timeout: cfg.TaskTimeout,
		logger:  logger.With("component", "dispatcher"),
	}
}

// Enqueue validates task and queues it, returning the job id.
func (d *Dispatcher) Enqueue(task domain.SyncTask) (string, error) {
	if d.closed.Load() {
		return "", ErrClosed
	}
	if err := task.Validate(); err != nil {
		return "", fmt.Errorf("validate task: %w", err)
	}

	job := &Job{
		Task:       task,
		EnqueuedAt: time.Now().UTC(),
		syncer:     d.syncer,
		timeout:    d.timeout,
		logger:     d.logger,
		status:     "queued",
	}
	d.manager.Add(job)

	d.logger.Info("sync task queued",
		"job_id", job.GetID(),
		"repository_type", task.RepositoryType,
		"full_name", task.FullName(),
	)
	return job.GetID(), nil
}

// JobInfo is a point-in-time view of a job.
type JobInfo struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Task       domain.SyncTask `json:"task"`
	State      string          `json:"state"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Jobs lists known jobs, oldest first.
func (d *Dispatcher) Jobs() []JobInfo {
	jobs := d.manager.GetAll()
	out := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, info(j))
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].EnqueuedAt.Before(out[b].EnqueuedAt)
	})
	return out
}

func (d *Dispatcher) Job(id string) (JobInfo, bool) {
	j, ok := d.manager.GetByID(id)
	if !ok {
		return JobInfo{}, false
	}
	return info(j), true
}

func (d *Dispatcher) Cancel(id string) bool {
	if _, ok := d.manager.GetByID(id); !ok {
		return false
	}
	d.manager.Cancel(id)
	return true
}

// ClearDone forgets every finished job.
func (d *Dispatcher) ClearDone() {
	d.manager.RemoveByCondition(func(j *Job) bool {
		return isDone(j.GetState())
	})
}

// Shutdown stops accepting tasks, cancels every unfinished job and waits
// until none is left running. Jobs that have not stopped when ctx is done
// are abandoned and ctx.Err() is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.closed.Store(true)
	d.manager.CancelByCondition(func(j *Job) bool {
		return !isDone(j.GetState())
	})

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for {
		pending := 0
		for _, j := range d.manager.GetAll() {
			if !isDone(j.GetState()) {
				pending++
			}
		}
		if pending == 0 {
			d.logger.Info("dispatcher drained")
			return nil
		}

		select {
		case <-ctx.Done():
			d.logger.Warn("dispatcher shutdown timed out", "unfinished_jobs", pending)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func isDone(s tache.State) bool {
	switch s {
	case tache.StateSucceeded, tache.StateFailed, tache.StateCanceled:
		return true
	}
	return false
}

func info(j *Job) JobInfo {
	ji := JobInfo{
		ID:         j.GetID(),
		Name:       j.GetName(),
		Task:       j.Task,
		State:      stateName(j.GetState()),
		Status:     j.GetStatus(),
		EnqueuedAt: j.EnqueuedAt,
	}
	if err := j.GetErr(); err != nil {
		ji.Error = err.Error()
	}
	return ji
}

func stateName(s tache.State) string {
	switch s {
	case tache.StatePending:
		return "pending"
	case tache.StateRunning:
		return "running"
	case tache.StateSucceeded:
		return "succeeded"
	case tache.StateCanceling:
		return "canceling"
	case tache.StateCanceled:
		return "canceled"
	case tache.StateErrored:
		return "errored"
	case tache.StateFailing:
		return "failing"
	case tache.StateFailed:
		return "failed"
	case tache.StateWaitingRetry:
		return "waiting_retry"
	case tache.StateBeforeRetry:
		return "before_retry"
	default:
		return "unknown"
	}
}
