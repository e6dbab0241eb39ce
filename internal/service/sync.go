package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
	"insight_sync/internal/manifest"
	"insight_sync/internal/storage/blob"
	"insight_sync/internal/workspace"
)

const defaultItemType = "insight"

var thumbnailCandidates = []string{
	"thumbnail.png",
	"thumbnail.jpg",
	"thumbnail.jpeg",
	"thumbnail.gif",
	"thumbnail.svg",
	".insight/thumbnail.png",
	".insight/thumbnail.jpg",
	".insight/thumbnail.jpeg",
	".insight/thumbnail.gif",
	".insight/thumbnail.svg",
}

// Deps are the stores and clients shared by every sync.
type Deps struct {
	Index     SearchIndex
	Insights  InsightStore
	Users     UserStore
	Counters  CounterStore
	Blobs     BlobStore
	Converter Converter
	TxManager TransactionManager
}

type SyncService struct {
	backends  map[domain.RepositoryType]Backend
	index     SearchIndex
	insights  InsightStore
	users     UserStore
	counters  CounterStore
	blobs     BlobStore
	converter Converter
	txManager TransactionManager
	locks     *keyedMutex
	logger    *slog.Logger
	config    config.SyncConfig
}

func NewSyncService(
	backends []Backend,
	deps Deps,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	byType := make(map[domain.RepositoryType]Backend, len(backends))
	for _, b := range backends {
		byType[b.Type()] = b
	}
	if cfg.FileConcurrency < 1 {
		cfg.FileConcurrency = 1
	}
	return &SyncService{
		backends:  byType,
		index:     deps.Index,
		insights:  deps.Insights,
		users:     deps.Users,
		counters:  deps.Counters,
		blobs:     deps.Blobs,
		converter: deps.Converter,
		txManager: deps.TxManager,
		locks:     newKeyedMutex(),
		logger:    logger.With("component", "sync"),
		config:    cfg,
	}
}

// Sync brings the stores in line with the current contents of one
// repository. A nil Insight with a nil error means the repository has no
// manifest and was skipped.
func (s *SyncService) Sync(ctx context.Context, task domain.SyncTask) (*domain.Insight, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("validate task: %w", err)
	}
	backend, ok := s.backends[task.RepositoryType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRepositoryType, task.RepositoryType)
	}

	fullName := task.FullName()
	unlock := s.locks.Lock(fullName)
	defer unlock()

	startTime := time.Now()
	logger := s.logger.With("full_name", fullName, "repository_type", task.RepositoryType)
	logger.Info("starting sync", "refresh", task.Refresh, "updated", task.Updated)

	previous, err := s.index.GetByFullName(ctx, fullName)
	if errors.Is(err, domain.ErrNotFound) {
		previous = nil
	} else if err != nil {
		return nil, fmt.Errorf("load previous snapshot: %w", err)
	}

	ws, insight, err := backend.Open(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			logger.Warn("failed to clean up workspace", "error", err)
		}
	}()

	m, err := manifest.Load(ws)
	if errors.Is(err, manifest.ErrNotFound) {
		logger.Warn("manifest not found, skipping", "manifest", manifest.FileName)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	readme, err := manifest.LoadReadme(ws)
	if err != nil {
		return nil, err
	}
	insight.Readme = readme
	manifest.Apply(insight, m)
	if insight.ItemType == "" {
		insight.ItemType = defaultItemType
	}
	insight.Tags = domain.NormalizeTags(insight.Tags)

	if insight.Repository.IsArchived {
		logger.Warn("repository is archived, skipping")
		return insight, nil
	}

	stats := &domain.SyncStats{FullName: fullName}

	files, err := s.syncFiles(ctx, ws, insight, previous, stats)
	if err != nil {
		return nil, fmt.Errorf("sync files: %w", err)
	}
	insight.Files = files

	contributors, err := s.resolveContributors(ctx, backend, task, insight)
	if err != nil {
		return nil, fmt.Errorf("resolve contributors: %w", err)
	}
	insight.Contributors = contributors

	s.setThumbnail(ws, insight)

	now := time.Now().UTC()
	rec, err := s.reconcile(ctx, task, insight, now, stats, logger)
	if err != nil {
		return nil, fmt.Errorf("reconcile insight: %w", err)
	}

	insight.ID = strconv.FormatInt(rec.ID, 10)
	insight.CreatedAt = rec.CreatedAt
	insight.SyncedAt = now
	switch {
	case previous == nil || previous.UpdatedAt.IsZero() || task.Updated:
		insight.UpdatedAt = now
	default:
		insight.UpdatedAt = previous.UpdatedAt
	}

	if err := s.publish(ctx, rec.ID, insight, task.Refresh); err != nil {
		return nil, fmt.Errorf("publish insight: %w", err)
	}

	if previous != nil && previous.ID != "" && previous.ID != insight.ID {
		if err := s.index.Delete(ctx, previous.ID); err != nil {
			logger.Warn("failed to remove stale index document", "id", previous.ID, "error", err)
		}
	}

	if err := backend.AfterPublish(ctx, task, insight); err != nil {
		logger.Warn("failed to update source repository", "error", err)
	}

	stats.Duration = time.Since(startTime)

	logger.Info("sync completed",
		"insight_id", insight.ID,
		"files", stats.Files,
		"uploaded", stats.Uploaded,
		"unchanged", stats.Unchanged,
		"conversions", stats.Conversions,
		"created", stats.Created,
		"renamed", stats.Renamed,
		"duration", stats.Duration,
	)

	return insight, nil
}

func (s *SyncService) setThumbnail(ws *workspace.Workspace, insight *domain.Insight) {
	insight.ThumbnailPath = ""
	insight.ThumbnailURL = ""
	for _, candidate := range thumbnailCandidates {
		if ws.FileExists(candidate) {
			insight.ThumbnailPath = candidate
			insight.ThumbnailURL = s.blobs.URI(blob.FileKey(insight.FullName, candidate))
			return
		}
	}
}

// reconcile upserts the relational row: by external id first, then by
// fullName (a rename on the source side), otherwise a new row.
func (s *SyncService) reconcile(
	ctx context.Context,
	task domain.SyncTask,
	insight *domain.Insight,
	now time.Time,
	stats *domain.SyncStats,
	logger *slog.Logger,
) (*domain.InsightRecord, error) {
	coordinates, err := task.Coordinates()
	if err != nil {
		return nil, err
	}

	var result *domain.InsightRecord
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		rec, err := s.insights.GetByExternalID(txCtx, insight.ExternalID)
		if errors.Is(err, domain.ErrNotFound) {
			rec, err = s.insights.GetByName(txCtx, insight.FullName)
			if errors.Is(err, domain.ErrNotFound) {
				rec = &domain.InsightRecord{
					ExternalID:     insight.ExternalID,
					InsightName:    insight.FullName,
					ItemType:       insight.ItemType,
					RepositoryData: coordinates,
					CreatedAt:      now,
					UpdatedAt:      now,
				}
				id, err := s.insights.Insert(txCtx, rec)
				if err != nil {
					return fmt.Errorf("insert insight: %w", err)
				}
				rec.ID = id
				stats.Created = true
				result = rec
				return nil
			}
			if err != nil {
				return fmt.Errorf("get insight by name: %w", err)
			}
			logger.Warn("rename detected",
				"insight_id", rec.ID,
				"previous_external_id", rec.ExternalID,
				"external_id", insight.ExternalID,
			)
			stats.Renamed = true
		} else if err != nil {
			return fmt.Errorf("get insight by external id: %w", err)
		}

		rec.ExternalID = insight.ExternalID
		rec.InsightName = insight.FullName
		rec.ItemType = insight.ItemType
		rec.RepositoryData = coordinates
		rec.UpdatedAt = now
		if err := s.insights.Update(txCtx, rec); err != nil {
			return fmt.Errorf("update insight: %w", err)
		}
		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SyncService) publish(ctx context.Context, id int64, insight *domain.Insight, refresh bool) error {
	counts, err := s.counters.Counts(ctx, id)
	if err != nil {
		return fmt.Errorf("load counters: %w", err)
	}
	insight.CommentCount = counts.Comments
	insight.LikeCount = counts.Likes
	insight.ViewCount = counts.Views

	return s.index.Upsert(ctx, insight, refresh)
}

// Delete soft-deletes the relational row for fullName and removes its index
// document.
func (s *SyncService) Delete(ctx context.Context, fullName string) error {
	unlock := s.locks.Lock(fullName)
	defer unlock()

	rec, err := s.insights.GetByName(ctx, fullName)
	if err != nil {
		return fmt.Errorf("get insight %s: %w", fullName, err)
	}
	if err := s.insights.SoftDelete(ctx, rec.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete insight %s: %w", fullName, err)
	}
	if err := s.index.Delete(ctx, strconv.FormatInt(rec.ID, 10)); err != nil {
		return fmt.Errorf("remove index document %d: %w", rec.ID, err)
	}

	s.logger.Info("insight deleted", "full_name", fullName, "insight_id", rec.ID)
	return nil
}
