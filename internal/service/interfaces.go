package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"insight_sync/internal/domain"
	"insight_sync/internal/workspace"
)

type InsightStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.InsightRecord, error)
	GetByName(ctx context.Context, fullName string) (*domain.InsightRecord, error)
	Insert(ctx context.Context, rec *domain.InsightRecord) (int64, error)
	Update(ctx context.Context, rec *domain.InsightRecord) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	ListActive(ctx context.Context) ([]domain.InsightRecord, error)
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGitHubLogin(ctx context.Context, login string) (*domain.User, error)
	ListWithGitHubLogin(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, u *domain.User) error
}

type CounterStore interface {
	Counts(ctx context.Context, insightID int64) (*domain.Counters, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SearchIndex holds the published snapshots. GetByFullName returns
// domain.ErrNotFound when there is none.
type SearchIndex interface {
	GetByFullName(ctx context.Context, fullName string) (*domain.Insight, error)
	Upsert(ctx context.Context, insight *domain.Insight, refresh bool) error
	Delete(ctx context.Context, id string) error
}

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	URI(key string) string
}

type Converter interface {
	RequestConversion(ctx context.Context, req *domain.ConversionRequest) error
}

// Backend produces a workspace and the source-derived part of an Insight for
// one repository type.
type Backend interface {
	Type() domain.RepositoryType
	Open(ctx context.Context, task domain.SyncTask) (*workspace.Workspace, *domain.Insight, error)
	Contributors(ctx context.Context, task domain.SyncTask) ([]string, error)
	AfterPublish(ctx context.Context, task domain.SyncTask, insight *domain.Insight) error
}

// RemoteOpener clones a repository that changes can be pushed back to.
type RemoteOpener interface {
	OpenWritable(ctx context.Context, task domain.SyncTask) (*workspace.Workspace, workspace.Credential, error)
}

type ProfileSource interface {
	GetProfile(ctx context.Context, login string) (*domain.User, error)
}

type Syncer interface {
	Sync(ctx context.Context, task domain.SyncTask) (*domain.Insight, error)
}
